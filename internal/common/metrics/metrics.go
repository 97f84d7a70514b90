// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_dispatches_total",
			Help: "Total number of notification dispatch attempts by outcome",
		},
		[]string{"kind", "outcome"}, // kind: order|report, outcome: success|failure
	)

	OrdersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_orders_skipped_total",
			Help: "Total number of order events skipped without a dispatch",
		},
		[]string{"reason"}, // stale, disabled, no_email, settings_unavailable
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notifier_dispatch_duration_seconds",
			Help: "Duration of relay dispatch calls in seconds",
		},
		[]string{"kind"},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_active_subscriptions",
			Help: "Number of branch scopes with a live order subscription",
		},
	)
)
