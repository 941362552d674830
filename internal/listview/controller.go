// Package listview keeps a local copy of one page of a remote collection in
// sync with a query (search, page, page size, filters).
package listview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/metrics"
	"github.com/utafrali/critiqo/internal/notify"
	"github.com/utafrali/critiqo/internal/query"
	"github.com/utafrali/critiqo/internal/snapshot"
	apperrors "github.com/utafrali/critiqo/pkg/errors"
	"github.com/utafrali/critiqo/pkg/logger"
	"github.com/utafrali/critiqo/pkg/pagination"
	"github.com/utafrali/critiqo/pkg/tracing"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("list view closed")

// Loader fetches the page described by a query.
type Loader[T any] interface {
	Load(ctx context.Context, q query.State) (domain.ListResult[T], error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc[T any] func(ctx context.Context, q query.State) (domain.ListResult[T], error)

func (f LoaderFunc[T]) Load(ctx context.Context, q query.State) (domain.ListResult[T], error) {
	return f(ctx, q)
}

// Options configures a Controller.
type Options[T any] struct {
	// Name identifies the view in logs, metrics and snapshot keys.
	Name string
	// Noun is the plural shown in messages, e.g. "reviews".
	Noun     string
	Defaults query.State
	// Navigator, when set, hydrates the query on Mount and mirrors every change.
	Navigator query.Navigator
	// Debounce is the search quiet period. Zero means DefaultDebounce; a
	// negative value fetches on every change.
	Debounce  time.Duration
	Snapshots snapshot.Store[T]
	// Initial is shown when the first fetch fails and no snapshot exists.
	Initial       []T
	InitialFilter func(T) bool
	// Backfill reloads the current page after every Remove. Set it for
	// views whose loader is local and cheap.
	Backfill bool
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// Controller is the list cache for one view. It is safe for concurrent use;
// network calls are made without holding the lock.
type Controller[T domain.Entity] struct {
	loader    Loader[T]
	opts      Options[T]
	debouncer *Debouncer
	tracer    trace.Tracer
	logger    *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	state    query.State
	data     domain.ListResult[T]
	dataKey  string
	hasData  bool
	inflight int
	issued   uint64
	applied  uint64
	lastErr  error
	closed   bool

	// filterKeys are every filter key this view has written to the URL.
	filterKeys map[string]struct{}
}

// New creates a controller. Nothing is fetched until Mount.
func New[T domain.Entity](loader Loader[T], opts Options[T]) *Controller[T] {
	if opts.Name == "" {
		opts.Name = "list"
	}
	if opts.Noun == "" {
		opts.Noun = "items"
	}
	if !query.IsAllowedLimit(opts.Defaults.Limit) {
		opts.Defaults.Limit = query.DefaultLimit
	}
	if opts.Defaults.Page < 1 {
		opts.Defaults.Page = 1
	}
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Multi{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		loader:     loader,
		opts:       opts,
		debouncer:  NewDebouncer(opts.Debounce),
		tracer:     tracing.Tracer("github.com/utafrali/critiqo/internal/listview"),
		logger:     opts.Logger.With(slog.String("view", opts.Name)),
		ctx:        ctx,
		cancel:     cancel,
		state:      opts.Defaults,
		data:       domain.EmptyList[T](),
		filterKeys: make(map[string]struct{}),
	}
}

// Mount hydrates the query from the navigator and performs the first fetch.
// Debounced fetches later run with ctx's values but not its cancellation.
func (c *Controller[T]) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	if c.opts.Navigator != nil {
		c.state = query.Hydrate(c.opts.Navigator, c.opts.Defaults)
	}
	s := c.state
	c.mu.Unlock()

	c.mirror(s)
	return c.load(ctx, s)
}

// SetSearch updates the search term right away and fetches page 1 once the
// debounce period passes without another change.
func (c *Controller[T]) SetSearch(term string) {
	c.mu.Lock()
	if c.closed || term == c.state.Search {
		c.mu.Unlock()
		return
	}
	c.state = c.state.WithSearch(term)
	c.mu.Unlock()

	c.debouncer.Trigger(func() {
		c.mu.Lock()
		s, ctx := c.state, c.ctx
		c.mu.Unlock()
		c.mirror(s)
		// Failures surface through View and the notifier.
		_ = c.load(ctx, s)
	})
}

// FlushSearch runs a pending debounced search fetch immediately.
func (c *Controller[T]) FlushSearch() bool {
	return c.debouncer.Flush()
}

// SetItemsPerPage changes the page size, returns to page 1 and fetches
// without debouncing.
func (c *Controller[T]) SetItemsPerPage(ctx context.Context, limit int) error {
	if !query.IsAllowedLimit(limit) {
		return apperrors.InvalidInput(fmt.Sprintf("items per page must be one of %v", query.AllowedLimits))
	}
	c.mu.Lock()
	same := limit == c.state.Limit
	c.mu.Unlock()
	if same {
		return nil
	}
	return c.apply(ctx, func(s query.State) query.State { return s.WithLimit(limit) })
}

// GoToPage fetches page. It reports false without fetching when page is out
// of range, already current, or a fetch is in flight.
func (c *Controller[T]) GoToPage(ctx context.Context, page int) (bool, error) {
	c.mu.Lock()
	if c.closed || !pagination.CanNavigate(page, c.state.Page, c.data.TotalPages, c.inflight > 0) {
		c.mu.Unlock()
		return false, nil
	}
	c.state = c.state.WithPage(page)
	s := c.state
	c.mu.Unlock()

	c.debouncer.Stop()
	c.mirror(s)
	return true, c.load(ctx, s)
}

// Next moves one page forward.
func (c *Controller[T]) Next(ctx context.Context) (bool, error) {
	return c.GoToPage(ctx, c.State().Page+1)
}

// Prev moves one page back.
func (c *Controller[T]) Prev(ctx context.Context) (bool, error) {
	return c.GoToPage(ctx, c.State().Page-1)
}

// SetFilter sets an extra filter (an empty value removes it) and refetches page 1.
func (c *Controller[T]) SetFilter(ctx context.Context, key, value string) error {
	return c.apply(ctx, func(s query.State) query.State { return s.WithFilter(key, value) })
}

// ClearFilters removes every extra filter and refetches page 1.
func (c *Controller[T]) ClearFilters(ctx context.Context) error {
	return c.apply(ctx, func(s query.State) query.State { return s.WithoutFilters() })
}

// Reset restores the default query and refetches.
func (c *Controller[T]) Reset(ctx context.Context) error {
	return c.apply(ctx, func(s query.State) query.State { return s.Reset(c.opts.Defaults) })
}

// Refresh refetches the current query. It is the user-initiated retry.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	return c.apply(ctx, func(s query.State) query.State { return s })
}

func (c *Controller[T]) apply(ctx context.Context, change func(query.State) query.State) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state = change(c.state)
	s := c.state
	c.mu.Unlock()

	// The immediate fetch already carries any pending search term.
	c.debouncer.Stop()
	c.mirror(s)
	return c.load(ctx, s)
}

// Find returns the cached entity with id.
func (c *Controller[T]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.data.Items[i], true
	}
	var zero T
	return zero, false
}

// Update applies fn to the cached entity with id. It reports false when the
// entity is no longer cached.
func (c *Controller[T]) Update(id string, fn func(*T)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return false
	}
	items := slices.Clone(c.data.Items)
	fn(&items[i])
	c.data.Items = items
	return true
}

// Remove drops the cached entity with id and decrements the total. The page
// is not backfilled from the server unless Backfill is set; when the current
// page empties or falls past the last page, the page is clamped and reloaded.
func (c *Controller[T]) Remove(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 || c.closed {
		c.mu.Unlock()
		return false, nil
	}
	c.data.Items = slices.Delete(slices.Clone(c.data.Items), i, i+1)
	if c.data.TotalCount > 0 {
		c.data.TotalCount--
	}
	c.data.TotalPages = pagination.TotalPages(c.data.TotalCount, c.state.Limit)

	reload := c.opts.Backfill
	if len(c.data.Items) == 0 && (c.state.Page > 1 || c.data.TotalCount > 0) {
		reload = true
	}
	if page := pagination.Clamp(c.state.Page, c.data.TotalPages); page != c.state.Page {
		c.state = c.state.WithPage(page)
		reload = true
	}
	s := c.state
	c.mu.Unlock()

	if !reload {
		return true, nil
	}
	c.mirror(s)
	return true, c.load(ctx, s)
}

// State returns the current query.
func (c *Controller[T]) State() query.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading reports whether a fetch is in flight.
func (c *Controller[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// Err returns the error of the last applied fetch, or nil.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Name returns the view name.
func (c *Controller[T]) Name() string {
	return c.opts.Name
}

// Close cancels pending debounced work. Later operations return ErrClosed.
func (c *Controller[T]) Close() {
	c.debouncer.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancel()
}

func (c *Controller[T]) indexLocked(id string) int {
	for i, item := range c.data.Items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}

func (c *Controller[T]) mirror(s query.State) {
	if c.opts.Navigator == nil {
		return
	}
	c.mu.Lock()
	for k := range s.Filters {
		c.filterKeys[k] = struct{}{}
	}
	managed := make([]string, 0, len(c.filterKeys))
	for k := range c.filterKeys {
		managed = append(managed, k)
	}
	c.mu.Unlock()
	query.Mirror(c.opts.Navigator, s, c.opts.Defaults, managed...)
}

// load fetches s and applies the result unless a newer query or a newer
// completion has superseded it.
func (c *Controller[T]) load(ctx context.Context, s query.State) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.issued++
	seq := c.issued
	c.inflight++
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "listview.load", trace.WithAttributes(
		attribute.String("view", c.opts.Name),
		attribute.Int("page", s.Page),
		attribute.Int("limit", s.Limit),
		attribute.String("search", s.SearchTerm()),
	))
	log := logger.WithContext(ctx, c.logger).With(
		slog.Int("page", s.Page),
		slog.Int("limit", s.Limit),
		slog.String("search", s.SearchTerm()),
	)

	start := time.Now()
	res, err := c.loader.Load(ctx, s)
	metrics.ListFetchDuration.WithLabelValues(c.opts.Name).Observe(time.Since(start).Seconds())

	var fallback domain.ListResult[T]
	var source string
	if err != nil {
		fallback, source = c.fallback(ctx, s)
	} else {
		res = normalize(res, s)
	}

	c.mu.Lock()
	c.inflight--
	if seq < c.applied || !s.Equal(c.state) {
		c.mu.Unlock()
		metrics.ListStaleDiscards.WithLabelValues(c.opts.Name).Inc()
		log.DebugContext(ctx, "discarded stale list response", slog.Uint64("seq", seq))
		tracing.End(span, nil)
		return nil
	}
	c.applied = seq

	if err != nil {
		c.lastErr = err
		if c.hasData {
			source = "displayed"
			// The rows on screen still belong to the last applied page.
			if c.dataKey == c.state.ResultKey() && c.data.CurrentPage != c.state.Page {
				c.state = c.state.WithPage(c.data.CurrentPage)
			}
		} else {
			c.data = fallback
			c.dataKey = s.ResultKey()
			c.hasData = source != ""
			if source != "" && fallback.CurrentPage != c.state.Page {
				c.state = c.state.WithPage(fallback.CurrentPage)
			}
		}
		next := c.state
		c.mu.Unlock()

		metrics.ListFetchTotal.WithLabelValues(c.opts.Name, metrics.OutcomeFailure).Inc()
		log.WarnContext(ctx, "list fetch failed",
			slog.String("error", err.Error()),
			slog.String("fallback", fallbackLabel(source)),
		)
		c.opts.Notifier.Failure(ctx, "Failed to fetch "+c.opts.Noun, err)
		tracing.End(span, err)
		c.mirror(next)
		return err
	}

	c.data = res
	c.dataKey = s.ResultKey()
	c.hasData = true
	c.lastErr = nil
	if res.CurrentPage != c.state.Page {
		c.state = c.state.WithPage(res.CurrentPage)
	}
	clamp := len(res.Items) == 0 && res.TotalCount > 0 && c.state.Page > res.TotalPages
	if clamp {
		c.state = c.state.WithPage(res.TotalPages)
	}
	next := c.state
	c.mu.Unlock()

	metrics.ListFetchTotal.WithLabelValues(c.opts.Name, metrics.OutcomeSuccess).Inc()
	log.InfoContext(ctx, "list loaded",
		slog.Int("items", len(res.Items)),
		slog.Int("total", res.TotalCount),
		slog.Int("total_pages", res.TotalPages),
	)
	if c.opts.Snapshots != nil {
		if err := c.opts.Snapshots.Save(ctx, SnapshotKey(c.opts.Name, s), res); err != nil {
			log.WarnContext(ctx, "failed to save list snapshot", slog.String("error", err.Error()))
		}
	}
	tracing.End(span, nil)

	c.mirror(next)
	if clamp {
		return c.load(ctx, next)
	}
	return nil
}

// SnapshotKey names the snapshot slot of view for the result set s selects.
// Pages of one result set share a slot.
func SnapshotKey(view string, s query.State) string {
	return view + "?" + s.ResultKey()
}

// normalize derives totals from the requested page size and trims overlong pages.
func normalize[T any](res domain.ListResult[T], s query.State) domain.ListResult[T] {
	if res.Items == nil {
		res.Items = []T{}
	}
	if len(res.Items) > s.Limit {
		res.Items = res.Items[:s.Limit]
	}
	if res.TotalCount < 0 {
		res.TotalCount = 0
	}
	res.TotalPages = pagination.TotalPages(res.TotalCount, s.Limit)
	if res.CurrentPage < 1 {
		res.CurrentPage = s.Page
	}
	return res
}

func (c *Controller[T]) fallback(ctx context.Context, s query.State) (domain.ListResult[T], string) {
	if c.opts.Snapshots != nil {
		res, err := c.opts.Snapshots.Load(ctx, SnapshotKey(c.opts.Name, s))
		if err == nil {
			return normalize(res, s), "snapshot"
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			c.logger.WarnContext(ctx, "failed to load list snapshot", slog.String("error", err.Error()))
		}
	}
	if len(c.opts.Initial) > 0 {
		filtered := make([]T, 0, len(c.opts.Initial))
		for _, item := range c.opts.Initial {
			if c.opts.InitialFilter == nil || c.opts.InitialFilter(item) {
				filtered = append(filtered, item)
			}
		}
		items := pagination.Slice(filtered, 1, s.Limit)
		return domain.NewListResult(items, len(filtered), 1, s.Limit), "initial"
	}
	return domain.EmptyList[T](), ""
}

func fallbackLabel(source string) string {
	if source == "" {
		return "none"
	}
	return source
}
