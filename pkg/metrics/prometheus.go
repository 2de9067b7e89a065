package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SignalDeck/internal/domain/models"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	eventsTotal    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	reconnects     prometheus.Counter
	actionsTotal   *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	connStatus     *prometheus.GaugeVec
	visibleSignals prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		eventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldeck_events_total",
				Help: "Total number of stream events dispatched",
			},
			[]string{"type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldeck_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		reconnects: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "signaldeck_stream_reconnects_total",
				Help: "Total number of stream reconnect cycles",
			},
		),
		actionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldeck_actions_total",
				Help: "User-initiated actions by outcome",
			},
			[]string{"action", "outcome"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaldeck_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		connStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signaldeck_connection_status",
				Help: "Stream connection status (1 for the current state)",
			},
			[]string{"status"},
		),
		visibleSignals: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "signaldeck_visible_signals",
				Help: "Number of signals in the visible collection",
			},
		),
	}
}

// RecordEvent records a dispatched stream event.
func (r *Recorder) RecordEvent(eventType string) {
	r.eventsTotal.WithLabelValues(eventType).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordReconnect records one stream reconnect cycle.
func (r *Recorder) RecordReconnect() {
	r.reconnects.Inc()
}

// RecordAction records a user action and its outcome.
func (r *Recorder) RecordAction(action, outcome string) {
	r.actionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// SetConnectionStatus marks the current connection state.
func (r *Recorder) SetConnectionStatus(status models.ConnStatus) {
	for _, s := range []models.ConnStatus{models.ConnConnecting, models.ConnOpen, models.ConnReconnecting, models.ConnClosed} {
		v := 0.0
		if s == status {
			v = 1
		}
		r.connStatus.WithLabelValues(string(s)).Set(v)
	}
}

// SetVisibleSignals records the visible collection size.
func (r *Recorder) SetVisibleSignals(n int) {
	r.visibleSignals.Set(float64(n))
}
