package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatches_total",
			Help: "Total number of notification dispatches by outcome",
		},
		[]string{"type", "outcome"},
	)

	ChannelAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_channel_attempts_total",
			Help: "Total number of per-channel delivery attempts",
		},
		[]string{"channel", "result"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notification_dispatch_duration_seconds",
			Help: "Duration of dispatch calls in seconds",
		},
		[]string{"type"},
	)

	PushFanoutSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_push_fanout_size",
			Help:    "Number of device tokens targeted per push send",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	DeviceTokensDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_device_tokens_deactivated_total",
			Help: "Total number of device tokens deactivated after provider rejection",
		},
	)
)
