package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for verification requests.
type Metrics struct {
	Verifications       *prometheus.CounterVec
	VerificationErrors  prometheus.Counter
	VerificationLatency prometheus.Histogram
}

// New registers and returns verification metrics collectors.
func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_verifications_total",
			Help: "Total number of completed verifications, labeled by verdict",
		}, []string{"verdict"}),
		VerificationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_verification_errors_total",
			Help: "Total number of verifications that failed to reach a verdict",
		}),
		VerificationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_verification_latency_seconds",
			Help:    "Latency of verification requests in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementVerifications(verdict string) {
	m.Verifications.WithLabelValues(verdict).Inc()
}

func (m *Metrics) IncrementVerificationErrors() {
	m.VerificationErrors.Inc()
}

func (m *Metrics) ObserveVerificationLatency(durationSeconds float64) {
	m.VerificationLatency.Observe(durationSeconds)
}
