package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/event"
	"github.com/utafrali/critiqo/internal/listview"
	"github.com/utafrali/critiqo/internal/metrics"
	"github.com/utafrali/critiqo/internal/notify"
	"github.com/utafrali/critiqo/internal/query"
	"github.com/utafrali/critiqo/internal/remote"
	apperrors "github.com/utafrali/critiqo/pkg/errors"
	"github.com/utafrali/critiqo/pkg/logger"
	"github.com/utafrali/critiqo/pkg/tracing"
)

// Action labels for moderation metrics.
const (
	ActionChangeStatus  = "change_status"
	ActionTogglePremium = "toggle_premium"
)

// ReviewLister is the read side of the portal client.
type ReviewLister interface {
	ListReviews(ctx context.Context, q remote.ReviewQuery) (domain.ListResult[domain.Review], error)
}

// ReviewUpdater is the write side of the portal client.
type ReviewUpdater interface {
	UpdateReview(ctx context.Context, id string, update remote.ReviewUpdate) (remote.Ack, error)
}

// ReviewSource loads one status partition through the portal API.
func ReviewSource(lister ReviewLister, p Partition) listview.Loader[domain.Review] {
	return listview.LoaderFunc[domain.Review](func(ctx context.Context, q query.State) (domain.ListResult[domain.Review], error) {
		return lister.ListReviews(ctx, remote.ReviewQueryFor(q, p.Status))
	})
}

// Moderator issues moderation writes and applies them to a review view only
// after the portal acknowledges them. Failed writes leave the view untouched.
type Moderator struct {
	updater   ReviewUpdater
	view      *listview.Controller[domain.Review]
	partition Partition
	notifier  notify.Notifier
	audit     event.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Moderator.
type Option func(*Moderator)

// WithNotifier sets the notification sink.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Moderator) { m.notifier = n }
}

// WithAudit sets the audit event publisher.
func WithAudit(p event.Publisher) Option {
	return func(m *Moderator) { m.audit = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Moderator) { m.logger = l }
}

// WithClock overrides time.Now for updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Moderator) { m.now = now }
}

// NewModerator creates a moderator for the view showing partition.
func NewModerator(updater ReviewUpdater, view *listview.Controller[domain.Review], partition Partition, opts ...Option) *Moderator {
	m := &Moderator{
		updater:   updater,
		view:      view,
		partition: partition,
		notifier:  notify.Multi{},
		audit:     event.NopPublisher{},
		logger:    slog.Default(),
		tracer:    tracing.Tracer("github.com/utafrali/critiqo/internal/moderation"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ChangeStatus sends a status change for id. On acknowledgement the review
// is removed from the view when it leaves the partition, or updated in place
// with the new status and updatedAt. A review that is not cached is still
// updated remotely.
func (m *Moderator) ChangeStatus(ctx context.Context, id string, target domain.ReviewStatus) (out Outcome, err error) {
	ctx, span := m.tracer.Start(ctx, "moderation.change_status", trace.WithAttributes(
		attribute.String("review_id", id),
		attribute.String("status", target.String()),
		attribute.String("partition", m.partition.Name()),
	))
	defer func() {
		metrics.ModerationActions.WithLabelValues(ActionChangeStatus, metrics.Outcome(err)).Inc()
		tracing.End(span, err)
	}()
	log := logger.WithContext(ctx, m.logger).With(
		slog.String("view", m.view.Name()),
		slog.String("review_id", id),
		slog.String("status", target.String()),
	)

	if !target.IsValid() {
		return Outcome{}, apperrors.InvalidInput(fmt.Sprintf("unknown review status %q", target))
	}

	if _, err := m.updater.UpdateReview(ctx, id, StatusUpdate(target)); err != nil {
		log.WarnContext(ctx, "review status change failed", slog.String("error", err.Error()))
		if errors.Is(err, apperrors.ErrRejected) {
			m.notifier.Failure(ctx, "Failed to update review status", err)
		} else {
			m.notifier.Failure(ctx, "Something went wrong while changing review status", err)
		}
		return Outcome{}, err
	}

	// The review may have been removed by another operation while the
	// request was in flight.
	cached, ok := m.view.Find(id)
	if !ok {
		cached = domain.Review{ID: id, Status: target}
	}
	out = Transition(cached, target, m.partition, m.now())
	out.Cached = ok

	if ok {
		if out.Remove {
			if _, err := m.view.Remove(ctx, id); err != nil {
				log.WarnContext(ctx, "reload after removal failed", slog.String("error", err.Error()))
			}
		} else {
			m.view.Update(id, func(r *domain.Review) {
				r.Status = out.Review.Status
				r.UpdatedAt = out.Review.UpdatedAt
			})
		}
	}

	m.notifier.Success(ctx, fmt.Sprintf("Review status changed successfully to %q", target))
	log.InfoContext(ctx, "review status changed",
		slog.String("from", out.From.String()),
		slog.Bool("removed", out.Remove && ok),
	)
	m.publish(ctx, log, func() error {
		return m.audit.PublishStatusChanged(ctx, event.StatusChangedData{
			ReviewID: id,
			Title:    out.Review.Title,
			From:     out.From,
			To:       target,
			Note:     StatusNote(target),
			View:     m.view.Name(),
			Removed:  out.Remove && ok,
		})
	})
	return out, nil
}

// TogglePremium flips premium on a cached review. The flag and price are
// written to the view only after acknowledgement.
func (m *Moderator) TogglePremium(ctx context.Context, id string) (change PremiumChange, err error) {
	ctx, span := m.tracer.Start(ctx, "moderation.toggle_premium", trace.WithAttributes(
		attribute.String("review_id", id),
	))
	defer func() {
		metrics.ModerationActions.WithLabelValues(ActionTogglePremium, metrics.Outcome(err)).Inc()
		tracing.End(span, err)
	}()
	log := logger.WithContext(ctx, m.logger).With(
		slog.String("view", m.view.Name()),
		slog.String("review_id", id),
	)

	review, ok := m.view.Find(id)
	if !ok {
		return PremiumChange{}, apperrors.NotFound("review", id)
	}
	change = TogglePremium(review)
	span.SetAttributes(attribute.Bool("premium", change.Enable))

	if _, err := m.updater.UpdateReview(ctx, id, change.Update()); err != nil {
		log.WarnContext(ctx, "premium toggle failed", slog.String("error", err.Error()))
		m.notifier.Failure(ctx, "Failed to update premium status", err)
		return PremiumChange{}, err
	}

	m.view.Update(id, change.Apply)
	m.notifier.Success(ctx, change.Message())
	log.InfoContext(ctx, "review premium toggled", slog.Bool("premium", change.Enable))
	m.publish(ctx, log, func() error {
		return m.audit.PublishPremiumToggled(ctx, event.PremiumToggledData{
			ReviewID:     id,
			IsPremium:    change.Enable,
			PremiumPrice: change.Price,
			Note:         change.Note,
		})
	})
	return change, nil
}

// publish sends an audit event. Audit failures are logged and never undo an
// acknowledged write.
func (m *Moderator) publish(ctx context.Context, log *slog.Logger, send func() error) {
	if err := send(); err != nil {
		log.ErrorContext(ctx, "failed to publish audit event", slog.String("error", err.Error()))
	}
}
