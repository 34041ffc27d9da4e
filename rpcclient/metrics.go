package rpcclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSubsystem is the subsystem name used by PrometheusMetrics.
const MetricsSubsystem = "rpcclient"

// Metrics contains the metrics exposed by a Client.
type Metrics struct {
	// Requests written to a transport.
	RequestsSent prometheus.Counter
	// Replies whose id matched no waiting request.
	DroppedReplies prometheus.Counter
	// Notifications whose subscription id matched no subscription.
	DroppedNotifications prometheus.Counter
	// Payloads or messages that could not be parsed.
	ParseFailures prometheus.Counter
	// Requests waiting for a reply.
	Pending prometheus.Gauge
	// Live subscriptions.
	Subscriptions prometheus.Gauge
}

// PrometheusMetrics returns Metrics registered with reg under namespace.
func PrometheusMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "requests_sent_total",
			Help:      "Number of requests written to a transport.",
		}),
		DroppedReplies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "dropped_replies_total",
			Help:      "Number of replies that matched no waiting request.",
		}),
		DroppedNotifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "dropped_notifications_total",
			Help:      "Number of notifications that matched no subscription.",
		}),
		ParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "parse_failures_total",
			Help:      "Number of payloads or messages that could not be parsed.",
		}),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "pending_requests",
			Help:      "Number of requests waiting for a reply.",
		}),
		Subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "subscriptions",
			Help:      "Number of live subscriptions.",
		}),
	}
}

// NopMetrics returns Metrics that are not registered anywhere. The values
// are still tracked and can be read in tests.
func NopMetrics() *Metrics {
	return PrometheusMetrics("", nil)
}
