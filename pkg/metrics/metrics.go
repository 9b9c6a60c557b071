// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessed tracks per-event pipeline outcomes
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "processor",
			Name:      "events_total",
			Help:      "Total number of processed events by outcome and reason",
		},
		[]string{"outcome", "reason"},
	)

	// RelocationAttempts tracks every locator invocation of the relocation cascade
	RelocationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "relocation",
			Name:      "attempts_total",
			Help:      "Total number of relocation attempts by locator and result",
		},
		[]string{"locator", "result"},
	)

	// RelocationDuration tracks how long a single locator call takes
	RelocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "relocation",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of relocation attempts in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"locator"},
	)

	// LifecycleMutations tracks removals and publications of merged origins
	LifecycleMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "lifecycle",
			Name:      "mutations_total",
			Help:      "Total number of merged origin removals and publications",
		},
		[]string{"kind", "dry_run"},
	)

	// InboundNotifications tracks notifications received from the live stream
	InboundNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "stream",
			Name:      "notifications_total",
			Help:      "Total number of inbound notifications by operation",
		},
		[]string{"operation"},
	)

	// InboundMessages tracks stream messages by handling result
	InboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Total number of inbound stream messages by result",
		},
		[]string{"result"},
	)
)
