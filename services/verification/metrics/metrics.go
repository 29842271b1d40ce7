package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for verification runs. All methods are
// nil-receiver safe so unit tests can construct services without a registry.
type Metrics struct {
	// Run outcomes by status ("ok", "failed")
	Runs *prometheus.CounterVec

	// Rows written per provider
	RecordsWritten *prometheus.CounterVec

	// Provider failures by provider and reason
	ProviderFailures *prometheus.CounterVec

	// End-to-end run latency
	RunDuration prometheus.Histogram
}

// New creates a Metrics instance registered on the default registry. Call it
// once per process.
func New() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensure_runs_total",
			Help: "Total verification runs by outcome status",
		}, []string{"status"}),

		RecordsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensure_license_records_written_total",
			Help: "Total license rows written, per provider",
		}, []string{"provider"}),

		ProviderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensure_provider_failures_total",
			Help: "Total per-provider failures during runs, by reason",
		}, []string{"provider", "reason"}),

		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "licensure_run_duration_seconds",
			Help:    "Duration of a full verification run",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementRun records one finished run with its outcome status.
func (m *Metrics) IncrementRun(status string) {
	if m != nil {
		m.Runs.WithLabelValues(status).Inc()
	}
}

// AddRecordsWritten records rows persisted for a provider.
func (m *Metrics) AddRecordsWritten(provider string, n int) {
	if m != nil && n > 0 {
		m.RecordsWritten.WithLabelValues(provider).Add(float64(n))
	}
}

// IncrementProviderFailure records a failed provider within a run.
func (m *Metrics) IncrementProviderFailure(provider, reason string) {
	if m != nil {
		m.ProviderFailures.WithLabelValues(provider, reason).Inc()
	}
}

// ObserveRunDuration records the total run duration.
func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}
