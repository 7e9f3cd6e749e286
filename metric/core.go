package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the broker's platform-level metrics
type Metrics struct {
	// Per-application call metrics
	GetCalls    *prometheus.CounterVec
	ChangeCalls *prometheus.CounterVec

	// Notification and persistence metrics
	NotificationsPublished *prometheus.CounterVec
	PersistenceFailures    *prometheus.CounterVec

	// Broker lifecycle
	EndpointsRegistered prometheus.Gauge
	BrokerUp            prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all broker metrics
func NewMetrics() *Metrics {
	return &Metrics{
		GetCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "configbroker",
				Subsystem: "calls",
				Name:      "get_total",
				Help:      "Total number of GetConfiguration calls served",
			},
			[]string{"application"},
		),

		ChangeCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "configbroker",
				Subsystem: "calls",
				Name:      "change_total",
				Help:      "Total number of ChangeConfiguration calls by outcome",
			},
			[]string{"application", "outcome"},
		),

		NotificationsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "configbroker",
				Subsystem: "notifications",
				Name:      "published_total",
				Help:      "Total number of ConfigurationChanged notifications published",
			},
			[]string{"application"},
		),

		PersistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "configbroker",
				Subsystem: "persistence",
				Name:      "failures_total",
				Help:      "Total number of swallowed configuration file write failures",
			},
			[]string{"application"},
		),

		EndpointsRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "configbroker",
				Subsystem: "broker",
				Name:      "endpoints_registered",
				Help:      "Number of application endpoints registered on the bus",
			},
		),

		BrokerUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "configbroker",
				Subsystem: "broker",
				Name:      "up",
				Help:      "Whether the broker dispatch loop is running (0/1)",
			},
		),
	}
}

// collectors returns all core metrics for bulk registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.GetCalls,
		m.ChangeCalls,
		m.NotificationsPublished,
		m.PersistenceFailures,
		m.EndpointsRegistered,
		m.BrokerUp,
	}
}
