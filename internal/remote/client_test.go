package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/critiqo/internal/apitest"
	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/query"
	apperrors "github.com/utafrali/critiqo/pkg/errors"
	"github.com/utafrali/critiqo/pkg/httpclient"
	"github.com/utafrali/critiqo/pkg/logger"
)

func newTestClient(t *testing.T, portal *apitest.Portal, opts ...Option) *Client {
	t.Helper()
	srv := portal.Start(t)
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.RateLimit = 0
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewClient(srv.URL+"/", httpclient.New(cfg), opts...)
}

func TestReviewQuery_Values(t *testing.T) {
	q := ReviewQuery{
		Page:    2,
		Limit:   25,
		Status:  domain.ReviewStatusUnpublished,
		Title:   "  camera ",
		Filters: map[string]string{"category": "tech", "empty": "", "page": "9"},
	}
	v := q.Values()

	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, "25", v.Get("limit"))
	assert.Equal(t, "UNPUBLISHED", v.Get("status"))
	assert.Equal(t, "camera", v.Get("title"))
	assert.Equal(t, "tech", v.Get("category"))
	assert.False(t, v.Has("empty"))

	bare := ReviewQuery{Page: 1, Limit: 10}.Values()
	assert.False(t, bare.Has("title"))
	assert.False(t, bare.Has("status"))
}

func TestReviewQueryFor(t *testing.T) {
	s := query.State{Search: " tv ", Page: 3, Limit: 5}
	q := ReviewQueryFor(s, domain.ReviewStatusPublished)
	assert.Equal(t, ReviewQuery{Page: 3, Limit: 5, Status: domain.ReviewStatusPublished, Title: "tv"}, q)
}

func TestListReviews_FiltersAndPages(t *testing.T) {
	portal := apitest.New().
		WithReviews(apitest.Reviews(12, domain.ReviewStatusUnpublished)...).
		WithReviews(apitest.Reviews(3, domain.ReviewStatusPublished)...)
	c := newTestClient(t, portal)

	res, err := c.ListReviews(context.Background(), ReviewQuery{Page: 2, Limit: 10, Status: domain.ReviewStatusUnpublished})
	require.NoError(t, err)

	assert.Len(t, res.Items, 2)
	assert.Equal(t, 12, res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, 2, res.CurrentPage)
	for _, r := range res.Items {
		assert.Equal(t, domain.ReviewStatusUnpublished, r.Status)
	}
}

func TestListReviews_AllShapes(t *testing.T) {
	for _, shape := range []apitest.Shape{apitest.ShapeNamed, apitest.ShapeData, apitest.ShapeBare} {
		portal := apitest.New().WithShape(shape).WithReviews(apitest.Reviews(3, domain.ReviewStatusPublished)...)
		c := newTestClient(t, portal)

		res, err := c.ListReviews(context.Background(), ReviewQuery{Page: 1, Limit: 10, Status: domain.ReviewStatusPublished})
		require.NoError(t, err)
		assert.Len(t, res.Items, 3)
	}
}

func TestListReviews_SendsHeaders(t *testing.T) {
	portal := apitest.New()
	c := newTestClient(t, portal, WithToken("tok-123"))

	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	_, err := c.ListReviews(ctx, ReviewQuery{Page: 1, Limit: 10, Title: "x"})
	require.NoError(t, err)

	reqs := portal.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer tok-123", reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "corr-9", reqs[0].Header.Get("X-Correlation-ID"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
	assert.Equal(t, "x", reqs[0].URL.Query().Get("title"))
}

func TestListReviews_NonOKIsFetchError(t *testing.T) {
	portal := apitest.New()
	portal.FailNext("GET /reviews", apitest.Fault{Status: http.StatusBadGateway, Body: "upstream down"})
	c := newTestClient(t, portal)

	_, err := c.ListReviews(context.Background(), ReviewQuery{Page: 1, Limit: 10})
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.Status)
	assert.Equal(t, "upstream down", fe.Body)
	assert.Equal(t, "failed to fetch reviews: 502 upstream down", fe.Error())
	assert.ErrorIs(t, err, apperrors.ErrInternal)
}

func TestListReviews_ParseErrorIsFetchError(t *testing.T) {
	portal := apitest.New()
	portal.FailNext("GET /reviews", apitest.Fault{Status: http.StatusOK, Body: `{"items":[]}`})
	c := newTestClient(t, portal)

	_, err := c.ListReviews(context.Background(), ReviewQuery{Page: 1, Limit: 10})

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestListReviews_TransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", httpclient.New(httpclient.Config{Timeout: time.Second}))

	_, err := c.ListReviews(context.Background(), ReviewQuery{Page: 1, Limit: 10})

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.Status)
	assert.Contains(t, fe.Error(), "failed to fetch reviews")
}

func TestListUsers(t *testing.T) {
	portal := apitest.New().WithUsers(apitest.Users(3)...)
	c := newTestClient(t, portal)

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 4)
}

func TestUpdateReview_Success(t *testing.T) {
	portal := apitest.New().WithReviews(apitest.Reviews(1, domain.ReviewStatusUnpublished)...)
	c := newTestClient(t, portal)

	status := domain.ReviewStatusPublished
	ack, err := c.UpdateReview(context.Background(), "unpub-01", ReviewUpdate{
		Status:         &status,
		ModerationNote: "Status changed to PUBLISHED by admin",
	})
	require.NoError(t, err)
	assert.True(t, ack.Success)

	stored, ok := portal.Review("unpub-01")
	require.True(t, ok)
	assert.Equal(t, domain.ReviewStatusPublished, stored.Status)

	updates := portal.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, "PUBLISHED", updates[0]["status"])
	assert.NotContains(t, updates[0], "isPremium")
}

func TestUpdateReview_PremiumBody(t *testing.T) {
	portal := apitest.New().WithReviews(apitest.Reviews(1, domain.ReviewStatusPublished)...)
	c := newTestClient(t, portal)

	on, price := true, domain.DefaultPremiumPrice
	_, err := c.UpdateReview(context.Background(), "pub-01", ReviewUpdate{IsPremium: &on, PremiumPrice: &price, ModerationNote: "note"})
	require.NoError(t, err)

	off := false
	_, err = c.UpdateReview(context.Background(), "pub-01", ReviewUpdate{IsPremium: &off, ModerationNote: "note"})
	require.NoError(t, err)

	updates := portal.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, 4.99, updates[0]["premiumPrice"])
	assert.NotContains(t, updates[1], "premiumPrice")
	assert.Equal(t, false, updates[1]["isPremium"])
}

func TestUpdateReview_Rejected(t *testing.T) {
	portal := apitest.New().WithReviews(apitest.Reviews(1, domain.ReviewStatusUnpublished)...)
	portal.RejectNext("PATCH /reviews/{id}", "review is locked")
	c := newTestClient(t, portal)

	status := domain.ReviewStatusPublished
	ack, err := c.UpdateReview(context.Background(), "unpub-01", ReviewUpdate{Status: &status, ModerationNote: "n"})
	require.Error(t, err)
	assert.False(t, ack.Success)

	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, OpUpdateReview, me.Op)
	assert.Equal(t, "unpub-01", me.EntityID)
	assert.Equal(t, "review is locked", me.Message)
	assert.ErrorIs(t, err, apperrors.ErrRejected)
}

func TestUpdateReview_NotFound(t *testing.T) {
	c := newTestClient(t, apitest.New())

	status := domain.ReviewStatusDraft
	_, err := c.UpdateReview(context.Background(), "missing", ReviewUpdate{Status: &status, ModerationNote: "n"})

	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, http.StatusNotFound, me.Status)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateReview_ValidatesLocally(t *testing.T) {
	portal := apitest.New()
	c := newTestClient(t, portal)

	_, err := c.UpdateReview(context.Background(), "r1", ReviewUpdate{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = c.UpdateReview(context.Background(), " ", ReviewUpdate{ModerationNote: "n"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Zero(t, portal.Count(http.MethodPatch, "/reviews"))
}

func TestDeleteUser(t *testing.T) {
	portal := apitest.New().WithUsers(apitest.Users(2)...)
	c := newTestClient(t, portal)

	ack, err := c.DeleteUser(context.Background(), "user-01")
	require.NoError(t, err)
	assert.True(t, ack.Success)
	assert.Equal(t, 2, portal.UserCount())

	_, err = c.DeleteUser(context.Background(), "admin-01")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDeleteUser_BadAcknowledgement(t *testing.T) {
	portal := apitest.New().WithUsers(apitest.Users(1)...)
	portal.FailNext("DELETE /users/{id}", apitest.Fault{Status: http.StatusOK, Body: "ok"})
	c := newTestClient(t, portal)

	_, err := c.DeleteUser(context.Background(), "user-01")

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "ok", pe.Body)
}

func TestMutationError_Message(t *testing.T) {
	err := &MutationError{Op: OpDeleteUser, EntityID: "u1", Status: 500, Err: errors.New("boom")}
	assert.Equal(t, "delete user u1: status 500: boom", err.Error())
}
