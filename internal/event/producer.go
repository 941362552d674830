// Package event publishes audit events for acknowledged moderation actions.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/critiqo/internal/domain"
	pkgkafka "github.com/utafrali/critiqo/pkg/kafka"
	"github.com/utafrali/critiqo/pkg/logger"
)

// DefaultTopic carries every audit event; events are keyed by entity ID.
var DefaultTopic = pkgkafka.Topic("moderation", "events")

// Audit event types.
const (
	TypeReviewStatusChanged  = "review.status_changed"
	TypeReviewPremiumToggled = "review.premium_toggled"
	TypeUserDeleted          = "user.deleted"
)

// Entity type constants.
const (
	EntityReview = "review"
	EntityUser   = "user"
)

// SourceCritiqo identifies events emitted by the moderation engine.
const SourceCritiqo = "critiqo"

// StatusChangedData is the payload for a review.status_changed event.
type StatusChangedData struct {
	ReviewID string              `json:"review_id"`
	Title    string              `json:"title"`
	From     domain.ReviewStatus `json:"from"`
	To       domain.ReviewStatus `json:"to"`
	Note     string              `json:"moderation_note"`
	View     string              `json:"view,omitempty"`
	Removed  bool                `json:"removed_from_view"`
}

// PremiumToggledData is the payload for a review.premium_toggled event.
type PremiumToggledData struct {
	ReviewID     string   `json:"review_id"`
	IsPremium    bool     `json:"is_premium"`
	PremiumPrice *float64 `json:"premium_price"`
	Note         string   `json:"moderation_note"`
}

// UserDeletedData is the payload for a user.deleted event.
type UserDeletedData struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Publisher records acknowledged moderation actions.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, data StatusChangedData) error
	PublishPremiumToggled(ctx context.Context, data PremiumToggledData) error
	PublishUserDeleted(ctx context.Context, data UserDeletedData) error
}

// AuditProducer publishes audit events to Kafka.
type AuditProducer struct {
	kafka  *pkgkafka.Producer
	topic  string
	logger *slog.Logger
}

// NewAuditProducer creates an audit producer. An empty topic means DefaultTopic.
func NewAuditProducer(kafka *pkgkafka.Producer, topic string, logger *slog.Logger) *AuditProducer {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditProducer{
		kafka:  kafka,
		topic:  topic,
		logger: logger,
	}
}

// PublishStatusChanged publishes a review.status_changed event.
func (p *AuditProducer) PublishStatusChanged(ctx context.Context, data StatusChangedData) error {
	if err := p.publish(ctx, TypeReviewStatusChanged, EntityReview, data.ReviewID, data); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "published review.status_changed event",
		slog.String("review_id", data.ReviewID),
		slog.String("to", data.To.String()),
	)
	return nil
}

// PublishPremiumToggled publishes a review.premium_toggled event.
func (p *AuditProducer) PublishPremiumToggled(ctx context.Context, data PremiumToggledData) error {
	if err := p.publish(ctx, TypeReviewPremiumToggled, EntityReview, data.ReviewID, data); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "published review.premium_toggled event",
		slog.String("review_id", data.ReviewID),
		slog.Bool("is_premium", data.IsPremium),
	)
	return nil
}

// PublishUserDeleted publishes a user.deleted event.
func (p *AuditProducer) PublishUserDeleted(ctx context.Context, data UserDeletedData) error {
	if err := p.publish(ctx, TypeUserDeleted, EntityUser, data.UserID, data); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "published user.deleted event",
		slog.String("user_id", data.UserID),
	)
	return nil
}

func (p *AuditProducer) publish(ctx context.Context, eventType, entityType, entityID string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, entityType, entityID, SourceCritiqo, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithActor(logger.ActorFromContext(ctx))

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(context.Context, StatusChangedData) error   { return nil }
func (NopPublisher) PublishPremiumToggled(context.Context, PremiumToggledData) error { return nil }
func (NopPublisher) PublishUserDeleted(context.Context, UserDeletedData) error       { return nil }
