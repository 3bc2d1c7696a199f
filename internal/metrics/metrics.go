// Package metrics exposes Prometheus instrumentation for the monitor
// pipeline. All methods are safe on a nil *Metrics so components can run
// uninstrumented in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ipwatch"

// Metrics holds the collectors for one monitor instance
type Metrics struct {
	linesTotal        prometheus.Counter
	markerLinesTotal  prometheus.Counter
	unattributedTotal prometheus.Counter
	alertsTotal       prometheus.Counter
	sinkFailures      prometheus.Counter
	rotationsTotal    prometheus.Counter
	trackedIPs        prometheus.Gauge
	sinkDuration      prometheus.Histogram
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		linesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Total number of log lines read",
		}),
		markerLinesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "marker_lines_total",
			Help:      "Lines containing the marker substring",
		}),
		unattributedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unattributed_lines_total",
			Help:      "Marker lines without a leading IP address",
		}),
		alertsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts handed to the notification sink",
		}),
		sinkFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Notification sink invocations that failed or timed out",
		}),
		rotationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotations_total",
			Help:      "Log files opened, including the first",
		}),
		trackedIPs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_ips",
			Help:      "IPs with at least one marker hit in the current history",
		}),
		sinkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_duration_seconds",
			Help:      "Time spent invoking the notification sink",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
}

func (m *Metrics) LineRead() {
	if m != nil {
		m.linesTotal.Inc()
	}
}

func (m *Metrics) MarkerLine() {
	if m != nil {
		m.markerLinesTotal.Inc()
	}
}

func (m *Metrics) Unattributed() {
	if m != nil {
		m.unattributedTotal.Inc()
	}
}

func (m *Metrics) AlertSent() {
	if m != nil {
		m.alertsTotal.Inc()
	}
}

func (m *Metrics) Rotation() {
	if m != nil {
		m.rotationsTotal.Inc()
	}
}

func (m *Metrics) SetTrackedIPs(n int) {
	if m != nil {
		m.trackedIPs.Set(float64(n))
	}
}

// ObserveSink records one sink call and whether it failed
func (m *Metrics) ObserveSink(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.sinkDuration.Observe(d.Seconds())
	if err != nil {
		m.sinkFailures.Inc()
	}
}
