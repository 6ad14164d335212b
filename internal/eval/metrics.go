package eval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the evaluator's Prometheus collectors. Pass a dedicated
// registry in tests; a nil *Metrics disables recording.
type Metrics struct {
	// evaluations counts runs by result (ok, error).
	evaluations *prometheus.CounterVec
	// rounds counts fixpoint rounds across all strata.
	rounds prometheus.Counter
	// derived counts facts added by rules.
	derived prometheus.Counter
	// dropped counts bindings discarded by builtin or aggregate failures.
	dropped *prometheus.CounterVec
	// duration tracks wall time per run.
	duration prometheus.Histogram
	// stratumRounds tracks rounds needed per stratum.
	stratumRounds prometheus.Histogram
}

// NewMetrics registers the evaluator collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strata",
			Subsystem: "eval",
			Name:      "runs_total",
			Help:      "Evaluations by result",
		}, []string{"result"}),
		rounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: "strata",
			Subsystem: "eval",
			Name:      "rounds_total",
			Help:      "Fixpoint rounds executed",
		}),
		derived: f.NewCounter(prometheus.CounterOpts{
			Namespace: "strata",
			Subsystem: "eval",
			Name:      "derived_facts_total",
			Help:      "Facts derived by rules",
		}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strata",
			Subsystem: "eval",
			Name:      "dropped_bindings_total",
			Help:      "Bindings discarded by builtin or aggregate failures, by reason",
		}, []string{"reason"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "strata",
			Subsystem: "eval",
			Name:      "duration_seconds",
			Help:      "Evaluation wall time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		stratumRounds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "strata",
			Subsystem: "eval",
			Name:      "stratum_rounds",
			Help:      "Rounds needed to reach a stratum fixpoint",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
	}
}

func (m *Metrics) observe(st *Stats, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.evaluations.WithLabelValues(result).Inc()
	m.duration.Observe(st.Duration.Seconds())
	m.derived.Add(float64(st.Derived))
	for _, r := range st.Rounds {
		m.rounds.Add(float64(r))
		m.stratumRounds.Observe(float64(r))
	}
	for reason, n := range st.Dropped {
		m.dropped.WithLabelValues(string(reason)).Add(float64(n))
	}
}
