package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for credential lifecycle operations.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationsFailed  *prometheus.CounterVec
	OperationLatency  *prometheus.HistogramVec
	ConfirmationWait  prometheus.Histogram
	SignerDeclines    prometheus.Counter
	StaleParamRetries prometheus.Counter
}

// New registers and returns credential metrics collectors.
func New() *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_credential_operations_total",
			Help: "Total number of confirmed lifecycle operations, labeled by operation",
		}, []string{"operation"}),
		OperationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_credential_operations_failed_total",
			Help: "Total number of failed lifecycle operations, labeled by operation and error code",
		}, []string{"operation", "code"}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attest_credential_operation_latency_seconds",
			Help:    "End-to-end latency of lifecycle operations including ledger confirmation",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"operation"}),
		ConfirmationWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_credential_confirmation_wait_seconds",
			Help:    "Time spent waiting for ledger confirmation",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		SignerDeclines: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_credential_signer_declines_total",
			Help: "Total number of transaction groups declined by the signing operator",
		}),
		StaleParamRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_credential_stale_param_retries_total",
			Help: "Total number of submissions retried after a stale validity window rejection",
		}),
	}
}

func (m *Metrics) IncrementOperation(operation string) {
	m.OperationsTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementOperationFailed(operation, code string) {
	m.OperationsFailed.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) ObserveOperationLatency(operation string, durationSeconds float64) {
	m.OperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}

func (m *Metrics) ObserveConfirmationWait(durationSeconds float64) {
	m.ConfirmationWait.Observe(durationSeconds)
}

func (m *Metrics) IncrementSignerDeclines() {
	m.SignerDeclines.Inc()
}

func (m *Metrics) IncrementStaleParamRetries() {
	m.StaleParamRetries.Inc()
}
