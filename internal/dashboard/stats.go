// Package dashboard gathers the review status counts shown on the admin
// dashboard and keeps them fresh by polling.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/metrics"
	"github.com/utafrali/critiqo/internal/moderation"
	"github.com/utafrali/critiqo/internal/remote"
	"github.com/utafrali/critiqo/pkg/logger"
)

// DefaultInterval is how often the poller refreshes.
const DefaultInterval = 30 * time.Second

// Stats is one snapshot of the dashboard counts.
type Stats struct {
	moderation.Counts `yaml:",inline"`
	FetchedAt         time.Time `json:"fetchedAt" yaml:"fetchedAt"`
}

// Collector reads the total of every status partition with a one-item page.
type Collector struct {
	lister moderation.ReviewLister
	logger *slog.Logger
	now    func() time.Time
}

// NewCollector creates a collector.
func NewCollector(lister moderation.ReviewLister, l *slog.Logger) *Collector {
	if l == nil {
		l = slog.Default()
	}
	return &Collector{lister: lister, logger: l, now: time.Now}
}

// Collect fetches the counts and updates the status gauges. A failed
// partition fails the whole snapshot.
func (c *Collector) Collect(ctx context.Context) (Stats, error) {
	var counts moderation.Counts
	for _, status := range domain.ReviewStatuses {
		res, err := c.lister.ListReviews(ctx, remote.ReviewQuery{Page: 1, Limit: 1, Status: status})
		if err != nil {
			return Stats{}, fmt.Errorf("count %s reviews: %w", status, err)
		}
		counts.Add(status, res.TotalCount)
	}

	metrics.ReviewsByStatus.WithLabelValues("published").Set(float64(counts.Published))
	metrics.ReviewsByStatus.WithLabelValues("pending").Set(float64(counts.Pending))
	metrics.ReviewsByStatus.WithLabelValues("unpublished").Set(float64(counts.Unpublished))
	metrics.ReviewsByStatus.WithLabelValues("total").Set(float64(counts.Total))

	logger.WithContext(ctx, c.logger).DebugContext(ctx, "dashboard stats collected",
		slog.Int("total", counts.Total),
		slog.Int("published", counts.Published),
		slog.Int("pending", counts.Pending),
		slog.Int("unpublished", counts.Unpublished),
	)
	return Stats{Counts: counts, FetchedAt: c.now().UTC()}, nil
}

// Poller refreshes stats on a fixed interval. There is no push channel.
type Poller struct {
	collector *Collector
	interval  time.Duration
	logger    *slog.Logger

	mu      sync.RWMutex
	last    Stats
	lastErr error
	polled  bool
}

// NewPoller creates a poller. A non-positive interval means DefaultInterval.
func NewPoller(c *Collector, interval time.Duration, l *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if l == nil {
		l = slog.Default()
	}
	return &Poller{collector: c, interval: interval, logger: l}
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll refreshes once. The previous stats are kept when it fails.
func (p *Poller) Poll(ctx context.Context) {
	stats, err := p.collector.Collect(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err != nil {
		p.logger.WarnContext(ctx, "dashboard poll failed", slog.String("error", err.Error()))
		return
	}
	p.last = stats
	p.polled = true
}

// Latest returns the last good stats and the error of the latest poll.
// ok is false until a poll has succeeded.
func (p *Poller) Latest() (stats Stats, ok bool, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.polled, p.lastErr
}

// Checker reports the latest poll error, for readiness probes.
func (p *Poller) Checker() func(context.Context) error {
	return func(context.Context) error {
		p.mu.RLock()
		defer p.mu.RUnlock()
		if !p.polled && p.lastErr == nil {
			return fmt.Errorf("dashboard stats not polled yet")
		}
		return p.lastErr
	}
}
