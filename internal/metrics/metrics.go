// Package metrics holds the Prometheus collectors for the moderation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure  = "failure"
)

var (
	ListFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "critiqo_list_fetch_total",
			Help: "List fetches by view and outcome",
		},
		[]string{"view", "outcome"},
	)

	ListFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "critiqo_list_fetch_duration_seconds",
			Help:    "List fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"},
	)

	ListStaleDiscards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "critiqo_list_stale_discards_total",
			Help: "Fetch completions dropped because a newer query superseded them",
		},
		[]string{"view"},
	)

	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "critiqo_moderation_actions_total",
			Help: "Moderation writes by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	ReviewsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "critiqo_reviews_by_status",
			Help: "Review totals per dashboard bucket from the last stats poll",
		},
		[]string{"status"},
	)
)

// Outcome maps an error to the success/failure label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
