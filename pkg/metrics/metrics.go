// Package metrics exposes Prometheus instrumentation for resolutions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every dossier collector. A nil *Metrics records nothing.
type Metrics struct {
	// Provider call latencies by provider and status
	ProviderLatency *prometheus.HistogramVec

	// Provider outcomes by provider and status
	ProviderOutcome *prometheus.CounterVec

	// Phase latencies by state
	PhaseLatency *prometheus.HistogramVec

	// Resolutions by outcome (profile_found, no_profile, invalid)
	Resolutions *prometheus.CounterVec

	// Overall resolution latency
	ResolveLatency prometheus.Histogram
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dossier_provider_duration_seconds",
			Help:    "Duration of provider calls by provider and status",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"provider", "status"}),

		ProviderOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_provider_results_total",
			Help: "Provider results by provider and status",
		}, []string{"provider", "status"}),

		PhaseLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dossier_phase_duration_seconds",
			Help:    "Duration of each resolution phase",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"state"}),

		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_resolutions_total",
			Help: "Resolutions by outcome",
		}, []string{"outcome"}),

		ResolveLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dossier_resolve_duration_seconds",
			Help:    "Duration of a full resolution",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// ObserveProvider records one provider result.
func (m *Metrics) ObserveProvider(provider, status string, d time.Duration) {
	if m != nil {
		m.ProviderOutcome.WithLabelValues(provider, status).Inc()
		m.ProviderLatency.WithLabelValues(provider, status).Observe(d.Seconds())
	}
}

// ObservePhase records the duration of one resolution phase.
func (m *Metrics) ObservePhase(state string, d time.Duration) {
	if m != nil {
		m.PhaseLatency.WithLabelValues(state).Observe(d.Seconds())
	}
}

// ObserveResolution records a finished resolution.
func (m *Metrics) ObserveResolution(outcome string, d time.Duration) {
	if m != nil {
		m.Resolutions.WithLabelValues(outcome).Inc()
		m.ResolveLatency.Observe(d.Seconds())
	}
}
