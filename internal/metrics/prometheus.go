package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// prometheusRecorder is the Prometheus-backed Recorder implementation.
type prometheusRecorder struct {
	messagesTotal        *prometheus.CounterVec
	routingErrorsTotal   *prometheus.CounterVec
	dispatchLatency      *prometheus.HistogramVec
	activeConnections    prometheus.Gauge
	connectionStateTotal *prometheus.CounterVec
	reassemblyOutcomes   *prometheus.CounterVec
	bytesTransferred     *prometheus.CounterVec
}

// NewRecorder constructs a Prometheus-backed Recorder. It returns nil if
// InitRegistry has not been called, so callers can pass the result
// straight through without an extra enabled check.
func NewRecorder() Recorder {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()

	return &prometheusRecorder{
		messagesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "someipd_messages_total",
				Help: "Total number of SOME/IP messages routed, by service, protocol, direction, and outcome.",
			},
			[]string{"service_id", "protocol", "direction", "outcome"},
		),
		routingErrorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "someipd_routing_errors_total",
				Help: "Total number of routing failures, by SOME/IP return code.",
			},
			[]string{"return_code"},
		),
		dispatchLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "someipd_dispatch_latency_milliseconds",
				Help:    "End-to-end message dispatch latency in milliseconds, by protocol.",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"protocol"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "someipd_active_tcp_connections",
				Help: "Current number of active TCP connections.",
			},
		),
		connectionStateTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "someipd_connection_state_changes_total",
				Help: "Total number of TCP connection state transitions, by resulting state.",
			},
			[]string{"state"},
		),
		reassemblyOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "someipd_tp_reassembly_outcomes_total",
				Help: "Total number of SOME/IP-TP reassembly terminal outcomes.",
			},
			[]string{"outcome"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "someipd_bytes_transferred_total",
				Help: "Total payload bytes transferred, by protocol and direction.",
			},
			[]string{"protocol", "direction"},
		),
	}
}

func (r *prometheusRecorder) RecordMessage(serviceID uint16, protocol, direction, outcome string) {
	r.messagesTotal.WithLabelValues(serviceIDLabel(serviceID), protocol, direction, outcome).Inc()
}

func (r *prometheusRecorder) RecordRoutingError(returnCode uint8) {
	r.routingErrorsTotal.WithLabelValues(returnCodeLabel(returnCode)).Inc()
}

func (r *prometheusRecorder) RecordLatency(protocol string, d time.Duration) {
	r.dispatchLatency.WithLabelValues(protocol).Observe(float64(d.Microseconds()) / 1000.0)
}

func (r *prometheusRecorder) SetActiveConnections(count int32) {
	r.activeConnections.Set(float64(count))
}

func (r *prometheusRecorder) RecordConnectionStateChange(state string) {
	r.connectionStateTotal.WithLabelValues(state).Inc()
}

func (r *prometheusRecorder) RecordReassemblyOutcome(outcome string) {
	r.reassemblyOutcomes.WithLabelValues(outcome).Inc()
}

func (r *prometheusRecorder) RecordBytesTransferred(protocol, direction string, bytes uint64) {
	r.bytesTransferred.WithLabelValues(protocol, direction).Add(float64(bytes))
}
