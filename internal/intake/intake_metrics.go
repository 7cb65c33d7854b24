package intake

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the intake subsystem.
type Metrics struct {
	TurnsTotal       *prometheus.CounterVec
	TurnDuration     prometheus.Histogram
	StoreErrorsTotal *prometheus.CounterVec
	EarlyExitsTotal  prometheus.Counter
}

// NewMetrics registers and returns intake metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_intake_turns_total",
			Help: "Total intake turns by resulting status.",
		}, []string{"status"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carepath_intake_turn_duration_seconds",
			Help:    "Duration of intake turns in seconds, including store I/O.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
		}),
		StoreErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_intake_store_errors_total",
			Help: "Session store failures by operation and whether the turn failed open.",
		}, []string{"op", "fail_open"}),
		EarlyExitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carepath_intake_early_exits_total",
			Help: "Intakes completed early because a red-flag rule matched.",
		}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.TurnDuration,
		m.StoreErrorsTotal,
		m.EarlyExitsTotal,
	)

	return m
}

// Hooks returns ServiceHooks that increment the corresponding metrics.
func (m *Metrics) Hooks() ServiceHooks {
	return ServiceHooks{
		OnTurn: func(status TurnStatus, duration float64) {
			m.TurnsTotal.WithLabelValues(string(status)).Inc()
			m.TurnDuration.Observe(duration)
		},
		OnStoreError: func(op string, failOpen bool) {
			fo := "false"
			if failOpen {
				fo = "true"
			}
			m.StoreErrorsTotal.WithLabelValues(op, fo).Inc()
		},
		OnEarlyExit: func() {
			m.EarlyExitsTotal.Inc()
		},
	}
}
