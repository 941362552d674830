package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/event"
	"github.com/utafrali/critiqo/internal/listview"
	"github.com/utafrali/critiqo/internal/metrics"
	"github.com/utafrali/critiqo/internal/notify"
	"github.com/utafrali/critiqo/internal/remote"
	apperrors "github.com/utafrali/critiqo/pkg/errors"
	"github.com/utafrali/critiqo/pkg/logger"
	"github.com/utafrali/critiqo/pkg/tracing"
)

// ActionDeleteUser labels deletion metrics.
const ActionDeleteUser = "delete_user"

// Notification fallbacks when the acknowledgement carries no message.
const (
	MessageDeleted     = "User deleted successfully"
	MessageDeleteError = "There was an error."
)

// ErrNothingPending is returned by Confirm when no user is selected.
var ErrNothingPending = errors.New("no deletion pending")

// UserDeleter is the delete side of the portal client.
type UserDeleter interface {
	DeleteUser(ctx context.Context, id string) (remote.Ack, error)
}

// Prompt is the confirmation shown before a delete.
type Prompt struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Question is the confirmation text.
func (p Prompt) Question() string {
	return fmt.Sprintf("Delete %s? This cannot be undone.", p.DisplayName)
}

// DeletionFlow is the two-step confirmed delete for the user table.
type DeletionFlow struct {
	deleter  UserDeleter
	view     *listview.Controller[domain.User]
	dir      *Directory
	notifier notify.Notifier
	audit    event.Publisher
	logger   *slog.Logger
	tracer   trace.Tracer

	mu      sync.Mutex
	pending *Prompt
}

// Option configures a DeletionFlow.
type Option func(*DeletionFlow)

// WithNotifier sets the notification sink.
func WithNotifier(n notify.Notifier) Option {
	return func(f *DeletionFlow) { f.notifier = n }
}

// WithAudit sets the audit event publisher.
func WithAudit(p event.Publisher) Option {
	return func(f *DeletionFlow) { f.audit = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *DeletionFlow) { f.logger = l }
}

// NewDeletionFlow creates the flow for view, whose loader is dir.
func NewDeletionFlow(deleter UserDeleter, view *listview.Controller[domain.User], dir *Directory, opts ...Option) *DeletionFlow {
	f := &DeletionFlow{
		deleter:  deleter,
		view:     view,
		dir:      dir,
		notifier: notify.Multi{},
		audit:    event.NopPublisher{},
		logger:   slog.Default(),
		tracer:   tracing.Tracer("github.com/utafrali/critiqo/internal/users"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Select opens the confirmation for a displayed user. Admin accounts are
// refused with ErrForbidden and nothing becomes pending.
func (f *DeletionFlow) Select(id string) (Prompt, error) {
	u, ok := f.view.Find(id)
	if !ok {
		return Prompt{}, apperrors.NotFound("user", id)
	}
	if !u.CanDelete() {
		return Prompt{}, apperrors.Forbidden("admin accounts cannot be deleted")
	}

	p := Prompt{UserID: u.ID, DisplayName: u.DisplayName(), Email: u.Email}
	f.mu.Lock()
	f.pending = &p
	f.mu.Unlock()
	return p, nil
}

// Pending returns the open confirmation, if any.
func (f *DeletionFlow) Pending() (Prompt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return Prompt{}, false
	}
	return *f.pending, true
}

// Cancel closes the confirmation without deleting.
func (f *DeletionFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = nil
}

// Confirm deletes the pending user. On success the user is removed from the
// collection and the view; when the current page empties and is not the
// first, the view moves to the new last page. The confirmation is closed
// whatever the outcome.
func (f *DeletionFlow) Confirm(ctx context.Context) (err error) {
	f.mu.Lock()
	p := f.pending
	f.pending = nil
	f.mu.Unlock()
	if p == nil {
		return ErrNothingPending
	}

	ctx, span := f.tracer.Start(ctx, "users.delete", trace.WithAttributes(
		attribute.String("user_id", p.UserID),
	))
	defer func() {
		metrics.ModerationActions.WithLabelValues(ActionDeleteUser, metrics.Outcome(err)).Inc()
		tracing.End(span, err)
	}()
	log := logger.WithContext(ctx, f.logger).With(
		slog.String("view", f.view.Name()),
		slog.String("user_id", p.UserID),
	)

	ack, err := f.deleter.DeleteUser(ctx, p.UserID)
	if err != nil {
		log.WarnContext(ctx, "user deletion failed", slog.String("error", err.Error()))
		f.notifier.Failure(ctx, failureMessage(err), err)
		return err
	}

	f.dir.Forget(p.UserID)
	if _, err := f.view.Remove(ctx, p.UserID); err != nil {
		log.WarnContext(ctx, "reload after deletion failed", slog.String("error", err.Error()))
	}

	msg := ack.Message
	if msg == "" {
		msg = MessageDeleted
	}
	f.notifier.Success(ctx, msg)
	log.InfoContext(ctx, "user deleted", slog.Int("page", f.view.State().Page))

	if err := f.audit.PublishUserDeleted(ctx, event.UserDeletedData{
		UserID:      p.UserID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
	}); err != nil {
		log.ErrorContext(ctx, "failed to publish audit event", slog.String("error", err.Error()))
	}
	return nil
}

func failureMessage(err error) string {
	var me *remote.MutationError
	if errors.As(err, &me) && me.Message != "" {
		return me.Message
	}
	return MessageDeleteError
}
