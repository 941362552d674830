// Package app wires the moderation engine to its transports: the portal API
// client, optional Redis snapshots, optional Kafka audit, tracing and the
// watch server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/critiqo/internal/auth"
	"github.com/utafrali/critiqo/internal/config"
	"github.com/utafrali/critiqo/internal/dashboard"
	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/event"
	"github.com/utafrali/critiqo/internal/listview"
	"github.com/utafrali/critiqo/internal/moderation"
	"github.com/utafrali/critiqo/internal/notify"
	"github.com/utafrali/critiqo/internal/query"
	"github.com/utafrali/critiqo/internal/remote"
	"github.com/utafrali/critiqo/internal/snapshot"
	"github.com/utafrali/critiqo/internal/users"
	"github.com/utafrali/critiqo/pkg/database"
	"github.com/utafrali/critiqo/pkg/health"
	"github.com/utafrali/critiqo/pkg/httpclient"
	pkgkafka "github.com/utafrali/critiqo/pkg/kafka"
	"github.com/utafrali/critiqo/pkg/logger"
	"github.com/utafrali/critiqo/pkg/tracing"
)

// Version is reported to the tracer.
var Version = "0.1.0"

// App wires together all dependencies of one critiqo invocation.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	notifier  notify.Notifier
	principal *auth.Principal

	client   *remote.Client
	rdb      *redis.Client
	producer *pkgkafka.Producer
	audit    event.Publisher

	shutdownTracer func(context.Context) error
	httpServer     *http.Server
}

// Option configures an App.
type Option func(*App)

// WithNotifier sets where operation notifications go. The default logs them.
func WithNotifier(n notify.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithDoer replaces the HTTP transport to the portal.
func WithDoer(d httpclient.Doer) Option {
	return func(a *App) { a.client = remote.NewClient(a.cfg.APIBaseURL, d, a.clientOptions()...) }
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	a := &App{
		cfg:            cfg,
		logger:         logger,
		notifier:       notify.NewLog(logger),
		audit:          event.NopPublisher{},
		shutdownTracer: func(context.Context) error { return nil },
	}

	if cfg.APIToken != "" {
		p, err := auth.ParseAdminToken(cfg.APIToken, time.Now())
		if err != nil {
			return nil, fmt.Errorf("check admin token: %w", err)
		}
		a.principal = &p
		logger.Debug("admin token accepted",
			slog.String("subject", p.Subject),
			slog.Time("expires_at", p.ExpiresAt),
		)
	}

	shutdown, err := tracing.InitTracer(ctx, cfg.Tracing(Version))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownTracer = shutdown

	// Portal client: rate limited, optionally behind a circuit breaker.
	var doer httpclient.Doer = httpclient.New(cfg.HTTPClient())
	if cfg.BreakerEnabled {
		doer = httpclient.NewCircuitBreakerClient(doer, cfg.Breaker("portal"), logger)
	}
	a.client = remote.NewClient(cfg.APIBaseURL, doer, a.clientOptions()...)

	for _, opt := range opts {
		opt(a)
	}

	if cfg.SnapshotsEnabled() {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := database.NewRedisClient(dialCtx, cfg.Redis())
		cancel()
		if err != nil {
			logger.Warn("snapshot store unavailable, continuing without it",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			a.rdb = rdb
			logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
		}
	}

	if cfg.AuditEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.audit = event.NewAuditProducer(a.producer, cfg.AuditTopic, logger)
		logger.Info("kafka audit producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	return a, nil
}

func (a *App) clientOptions() []remote.Option {
	opts := []remote.Option{remote.WithLogger(a.logger)}
	if a.cfg.APIToken != "" {
		opts = append(opts, remote.WithToken(a.cfg.APIToken))
	}
	return opts
}

// Client returns the portal API client.
func (a *App) Client() *remote.Client {
	return a.client
}

// Audit returns the audit publisher.
func (a *App) Audit() event.Publisher {
	return a.audit
}

// Context returns ctx carrying a fresh correlation ID and the token's actor.
func (a *App) Context(ctx context.Context) context.Context {
	if logger.CorrelationIDFromContext(ctx) == "" {
		ctx = logger.WithCorrelationID(ctx, uuid.New().String())
	}
	if a.principal != nil {
		ctx = logger.WithActor(ctx, a.principal.Actor())
	}
	return logger.NewContext(ctx, a.logger)
}

// ViewOptions are per-invocation settings for a list view.
type ViewOptions struct {
	Navigator query.Navigator
	Limit     int
	// FilterKeys are the filter parameters hydrated from the navigator.
	FilterKeys []string
	// Debounce overrides the configured search debounce when non-zero.
	Debounce time.Duration
}

func (a *App) defaults(o ViewOptions) query.State {
	limit := a.cfg.DefaultLimit
	if o.Limit != 0 {
		limit = o.Limit
	}
	d := query.Defaults(limit)
	for _, key := range o.FilterKeys {
		if d.Filters == nil {
			d.Filters = make(map[string]string, len(o.FilterKeys))
		}
		d.Filters[key] = ""
	}
	return d
}

func (a *App) debounce(o ViewOptions) time.Duration {
	if o.Debounce != 0 {
		return o.Debounce
	}
	return a.cfg.SearchDebounce
}

// ReviewView builds the list view and moderator for one status partition.
func (a *App) ReviewView(p moderation.Partition, o ViewOptions) (*listview.Controller[domain.Review], *moderation.Moderator) {
	opts := listview.Options[domain.Review]{
		Name:      "reviews-" + p.Name(),
		Noun:      "reviews",
		Defaults:  a.defaults(o),
		Navigator: o.Navigator,
		Debounce:  a.debounce(o),
		Notifier:  a.notifier,
		Logger:    a.logger,
	}
	if a.rdb != nil {
		opts.Snapshots = snapshot.NewRedisStore[domain.Review](a.rdb, a.cfg.SnapshotTTL)
	}

	view := listview.New(moderation.ReviewSource(a.client, p), opts)
	mod := moderation.NewModerator(a.client, view, p,
		moderation.WithNotifier(a.notifier),
		moderation.WithAudit(a.audit),
		moderation.WithLogger(a.logger),
	)
	return view, mod
}

// UserView builds the user table: its directory, list view and deletion flow.
func (a *App) UserView(o ViewOptions, initial []domain.User) (*listview.Controller[domain.User], *users.Directory, *users.DeletionFlow) {
	dir := users.NewDirectory(a.client, initial)
	opts := listview.Options[domain.User]{
		Name:      "users",
		Noun:      "users",
		Defaults:  a.defaults(o),
		Navigator: o.Navigator,
		Debounce:  a.debounce(o),
		Initial:   initial,
		Backfill:  true,
		Notifier:  a.notifier,
		Logger:    a.logger,
	}
	if a.rdb != nil {
		opts.Snapshots = snapshot.NewRedisStore[domain.User](a.rdb, a.cfg.SnapshotTTL)
	}

	view := listview.New[domain.User](dir, opts)
	flow := users.NewDeletionFlow(a.client, view, dir,
		users.WithNotifier(a.notifier),
		users.WithAudit(a.audit),
		users.WithLogger(a.logger),
	)
	return view, dir, flow
}

// Collector returns the dashboard stats collector.
func (a *App) Collector() *dashboard.Collector {
	return dashboard.NewCollector(a.client, a.logger)
}

// Watch polls dashboard stats and serves them with health and metrics
// endpoints until ctx is canceled.
func (a *App) Watch(ctx context.Context) error {
	poller := dashboard.NewPoller(a.Collector(), a.cfg.WatchInterval, a.logger)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("portal", poller.Checker())
	if a.rdb != nil {
		healthHandler.RegisterNonCritical("redis", database.RedisChecker(a.rdb))
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.WatchPort),
		Handler:      NewWatchRouter(poller, healthHandler, a.logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	pollCtx, stopPolling := context.WithCancel(a.Context(ctx))
	defer stopPolling()
	go poller.Run(pollCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting watch server",
			slog.String("addr", a.httpServer.Addr),
			slog.Duration("interval", a.cfg.WatchInterval),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("watch server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}
	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Debug("shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("watch server shutdown error", slog.String("error", err.Error()))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}
	return nil
}
