package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoapply_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	ScansCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoapply_scans_total",
			Help: "Company scans by outcome.",
		},
		[]string{"outcome"},
	)
	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autoapply_scan_duration_seconds",
			Help:    "Duration of each company scan in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	GenerativeCallsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoapply_generative_calls_total",
			Help: "Generative provider calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	TransitionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoapply_application_transitions_total",
			Help: "Pending application transitions by target status.",
		},
		[]string{"status"},
	)
	DispatchedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoapply_dispatch_outcomes_total",
			Help: "Per-company batch dispatch outcomes.",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ErrorsCounter)
		prometheus.MustRegister(ScansCounter)
		prometheus.MustRegister(ScanDuration)
		prometheus.MustRegister(GenerativeCallsCounter)
		prometheus.MustRegister(TransitionsCounter)
		prometheus.MustRegister(DispatchedCounter)
	})
}
