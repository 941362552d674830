package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/critiqo/internal/domain"
	pkgkafka "github.com/utafrali/critiqo/pkg/kafka"
	"github.com/utafrali/critiqo/pkg/logger"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newProducer(w *recordingWriter, topic string) *AuditProducer {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuditProducer(pkgkafka.NewProducerWithWriter(w, nil, quiet), topic, quiet)
}

func decode(t *testing.T, msg kafka.Message) *pkgkafka.Event {
	t.Helper()
	ev, err := pkgkafka.UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	return ev
}

func TestDefaultTopic(t *testing.T) {
	assert.Equal(t, "critiqo.moderation.events", DefaultTopic)
	assert.Equal(t, DefaultTopic, NewAuditProducer(nil, "", nil).topic)
}

func TestPublishStatusChanged(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, "")

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ctx = logger.WithActor(ctx, "admin@critiqo.io")

	err := p.PublishStatusChanged(ctx, StatusChangedData{
		ReviewID: "unpub-01",
		Title:    "Review 01",
		From:     domain.ReviewStatusUnpublished,
		To:       domain.ReviewStatusPublished,
		Note:     "Status changed to PUBLISHED by admin",
		View:     "reviews-unpublished",
		Removed:  true,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, DefaultTopic, msg.Topic)
	assert.Equal(t, "unpub-01", string(msg.Key))

	ev := decode(t, msg)
	assert.Equal(t, TypeReviewStatusChanged, ev.EventType)
	assert.Equal(t, EntityReview, ev.EntityType)
	assert.Equal(t, SourceCritiqo, ev.Source)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "admin@critiqo.io", ev.Actor)

	var data StatusChangedData
	require.NoError(t, ev.UnmarshalData(&data))
	assert.Equal(t, domain.ReviewStatusPublished, data.To)
	assert.True(t, data.Removed)
	assert.Equal(t, "Status changed to PUBLISHED by admin", data.Note)
}

func TestPublishPremiumToggled_NullPriceWhenDisabled(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, "audit")

	require.NoError(t, p.PublishPremiumToggled(context.Background(), PremiumToggledData{
		ReviewID:  "pub-01",
		IsPremium: false,
		Note:      "Reverted to free review",
	}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "audit", w.msgs[0].Topic)

	ev := decode(t, w.msgs[0])
	assert.Equal(t, TypeReviewPremiumToggled, ev.EventType)
	assert.Contains(t, string(ev.Data), `"premium_price":null`)
}

func TestPublishUserDeleted(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, "")

	require.NoError(t, p.PublishUserDeleted(context.Background(), UserDeletedData{
		UserID:      "user-03",
		Email:       "guest03@example.com",
		DisplayName: "Guest 03",
	}))

	ev := decode(t, w.msgs[0])
	assert.Equal(t, TypeUserDeleted, ev.EventType)
	assert.Equal(t, EntityUser, ev.EntityType)
	assert.Equal(t, "user-03", ev.EntityID)
	assert.Empty(t, ev.Actor)
}

func TestPublish_WriterErrorIsWrapped(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newProducer(w, "")

	err := p.PublishUserDeleted(context.Background(), UserDeletedData{UserID: "user-01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish user.deleted event")
	assert.Contains(t, err.Error(), "broker down")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	ctx := context.Background()
	assert.NoError(t, p.PublishStatusChanged(ctx, StatusChangedData{}))
	assert.NoError(t, p.PublishPremiumToggled(ctx, PremiumToggledData{}))
	assert.NoError(t, p.PublishUserDeleted(ctx, UserDeletedData{}))
}
