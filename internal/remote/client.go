package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/query"
	apperrors "github.com/utafrali/critiqo/pkg/errors"
	"github.com/utafrali/critiqo/pkg/httpclient"
	"github.com/utafrali/critiqo/pkg/logger"
	"github.com/utafrali/critiqo/pkg/validator"
)

// ServiceName identifies the portal API in errors and breaker metrics.
const ServiceName = "review-portal"

const maxBody = 8 << 20

// Mutation operation names carried by MutationError.
const (
	OpUpdateReview = "update review"
	OpDeleteUser   = "delete user"
)

// ReviewQuery is one GET /reviews request.
type ReviewQuery struct {
	Page    int
	Limit   int
	Status  domain.ReviewStatus
	Title   string
	Filters map[string]string
}

// ReviewQueryFor maps a list view's query state onto a review request for
// the given status partition.
func ReviewQueryFor(s query.State, status domain.ReviewStatus) ReviewQuery {
	return ReviewQuery{
		Page:    s.Page,
		Limit:   s.Limit,
		Status:  status,
		Title:   s.SearchTerm(),
		Filters: s.Filters,
	}
}

// Values encodes the request parameters. Empty filters are dropped and the
// fixed keys cannot be overridden by a filter.
func (q ReviewQuery) Values() url.Values {
	v := url.Values{}
	for k, val := range q.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Status != "" {
		v.Set("status", string(q.Status))
	} else {
		v.Del("status")
	}
	if title := strings.TrimSpace(q.Title); title != "" {
		v.Set("title", title)
	} else {
		v.Del("title")
	}
	return v
}

// ReviewUpdate is the PATCH /reviews/:id body.
type ReviewUpdate struct {
	Status         *domain.ReviewStatus `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED UNPUBLISHED"`
	IsPremium      *bool                `json:"isPremium,omitempty"`
	PremiumPrice   *float64             `json:"premiumPrice,omitempty" validate:"omitempty,gt=0"`
	ModerationNote string               `json:"moderationNote" validate:"required"`
}

// Ack is the portal's mutation acknowledgement.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Client talks to the review portal API.
type Client struct {
	baseURL string
	http    httpclient.Doer
	token   string
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a portal client rooted at baseURL.
func NewClient(baseURL string, doer httpclient.Doer, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListReviews fetches one server-paged, status-filtered page of reviews.
func (c *Client) ListReviews(ctx context.Context, q ReviewQuery) (domain.ListResult[domain.Review], error) {
	body, err := c.fetch(ctx, "reviews", "/reviews?"+q.Values().Encode())
	if err != nil {
		return domain.ListResult[domain.Review]{}, err
	}
	res, err := ParseReviewList(body, q.Page, q.Limit)
	if err != nil {
		return domain.ListResult[domain.Review]{}, &FetchError{Resource: "reviews", Status: http.StatusOK, Body: string(body), Err: err}
	}
	return res, nil
}

// ListUsers fetches the full user collection. The endpoint is not paged.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	body, err := c.fetch(ctx, "users", "/users")
	if err != nil {
		return nil, err
	}
	res, err := ParseUserList(body, 1, 0)
	if err != nil {
		return nil, &FetchError{Resource: "users", Status: http.StatusOK, Body: string(body), Err: err}
	}
	return res.Items, nil
}

// UpdateReview sends a moderation update. A success:false acknowledgement is
// returned as a MutationError wrapping ErrRejected.
func (c *Client) UpdateReview(ctx context.Context, id string, update ReviewUpdate) (Ack, error) {
	if strings.TrimSpace(id) == "" {
		return Ack{}, &MutationError{Op: OpUpdateReview, Err: apperrors.InvalidInput("review id is required")}
	}
	if err := validator.Validate(update); err != nil {
		return Ack{}, &MutationError{Op: OpUpdateReview, EntityID: id, Message: err.Error(), Err: apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())}
	}
	return c.mutate(ctx, OpUpdateReview, id, http.MethodPatch, "/reviews/"+url.PathEscape(id), update)
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id string) (Ack, error) {
	if strings.TrimSpace(id) == "" {
		return Ack{}, &MutationError{Op: OpDeleteUser, Err: apperrors.InvalidInput("user id is required")}
	}
	return c.mutate(ctx, OpDeleteUser, id, http.MethodDelete, "/users/"+url.PathEscape(id), nil)
}

func (c *Client) fetch(ctx context.Context, resource, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, &FetchError{Resource: resource, Err: err}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, c.fetchError(resource, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fetchError(resource, httpclient.ParseResponseError(resp, ServiceName))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &FetchError{Resource: resource, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

func (c *Client) fetchError(resource string, err error) error {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return &FetchError{Resource: resource, Status: se.Status, Body: se.Body, Err: err}
	}
	return &FetchError{Resource: resource, Err: err}
}

func (c *Client) mutate(ctx context.Context, op, id, method, path string, body any) (Ack, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return Ack{}, &MutationError{Op: op, EntityID: id, Err: err}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return Ack{}, mutationError(op, id, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Ack{}, mutationError(op, id, httpclient.ParseResponseError(resp, ServiceName))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Ack{}, &MutationError{Op: op, EntityID: id, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	var ack Ack
	if err := json.Unmarshal(raw, &ack); err != nil {
		return Ack{}, &MutationError{
			Op:       op,
			EntityID: id,
			Status:   resp.StatusCode,
			Err:      &ParseError{Reason: fmt.Sprintf("decode acknowledgement: %v", err), Body: string(raw)},
		}
	}
	if !ack.Success {
		return ack, &MutationError{Op: op, EntityID: id, Status: resp.StatusCode, Message: ack.Message, Err: apperrors.Rejected(ack.Message)}
	}
	return ack, nil
}

func mutationError(op, id string, err error) error {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return &MutationError{Op: op, EntityID: id, Status: se.Status, Message: se.Message, Err: err}
	}
	return &MutationError{Op: op, EntityID: id, Err: err}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	req, err := httpclient.NewJSONRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	correlationID := logger.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	req.Header.Set("X-Correlation-ID", correlationID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	logger.WithContext(ctx, c.logger).DebugContext(ctx, "portal request",
		slog.String("method", method),
		slog.String("path", path),
	)
	return req, nil
}
