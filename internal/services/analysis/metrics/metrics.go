// Package metrics exposes prometheus instruments for analysis runs
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the analysis module
type Metrics struct {
	// Runs by outcome: ok, partial, rejected, error
	Runs *prometheus.CounterVec

	// Jurisdictions that produced an error instead of a determination, by error code
	JurisdictionFailures *prometheus.CounterVec

	// Ledger rows rejected during ingestion
	RejectedRows prometheus.Counter

	// End to end analysis latency
	RunDuration prometheus.Histogram

	// VDA models by outcome
	VDAModels *prometheus.CounterVec
}

// New registers the analysis metrics on reg; nil reg uses the default registerer
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_analysis_runs_total",
			Help: "Total analysis runs by outcome",
		}, []string{"outcome"}),

		JurisdictionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_analysis_jurisdiction_failures_total",
			Help: "Jurisdictions that failed evaluation by error code",
		}, []string{"code"}),

		RejectedRows: f.NewCounter(prometheus.CounterOpts{
			Name: "nexus_analysis_rejected_rows_total",
			Help: "Ledger rows rejected during ingestion",
		}),

		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexus_analysis_run_duration_seconds",
			Help:    "Duration of an analysis run including load and persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		VDAModels: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_vda_models_total",
			Help: "Total VDA models by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementRun records a run outcome
func (m *Metrics) IncrementRun(outcome string) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
	}
}

// IncrementJurisdictionFailure records one failed jurisdiction
func (m *Metrics) IncrementJurisdictionFailure(code string) {
	if m != nil {
		m.JurisdictionFailures.WithLabelValues(code).Inc()
	}
}

// AddRejectedRows records rejected ledger rows
func (m *Metrics) AddRejectedRows(n int) {
	if m != nil && n > 0 {
		m.RejectedRows.Add(float64(n))
	}
}

// ObserveRunDuration records the run latency
func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}

// IncrementVDA records a VDA model outcome
func (m *Metrics) IncrementVDA(outcome string) {
	if m != nil {
		m.VDAModels.WithLabelValues(outcome).Inc()
	}
}
