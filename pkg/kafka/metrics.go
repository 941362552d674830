package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "critiqo_audit_events_published_total",
			Help: "Audit events accepted by the broker, by topic and event type",
		},
		[]string{"topic", "event_type"},
	)

	eventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "critiqo_audit_events_failed_total",
			Help: "Audit events the broker did not accept, by topic and event type",
		},
		[]string{"topic", "event_type"},
	)

	publishSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "critiqo_audit_publish_duration_seconds",
			Help:    "Time spent writing one audit event",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"topic"},
	)
)
