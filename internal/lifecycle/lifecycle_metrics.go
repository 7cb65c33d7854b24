package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/carepath/internal/intake"
)

// Metrics holds Prometheus metrics for the session lifecycle manager.
type Metrics struct {
	SweepsTotal        *prometheus.CounterVec
	SweptSessionsTotal prometheus.Counter
	SweepDuration      prometheus.Histogram
	Sessions           *prometheus.GaugeVec
}

// NewMetrics registers and returns lifecycle metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_session_sweeps_total",
			Help: "Total session sweeps by result.",
		}, []string{"result"}),
		SweptSessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carepath_swept_sessions_total",
			Help: "Total expired sessions removed by sweeps.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carepath_session_sweep_duration_seconds",
			Help:    "Duration of session sweeps in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms .. ~16s
		}),
		Sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "carepath_sessions",
			Help: "Stored intake sessions by state, as of the last stats load.",
		}, []string{"state"}),
	}

	reg.MustRegister(
		m.SweepsTotal,
		m.SweptSessionsTotal,
		m.SweepDuration,
		m.Sessions,
	)

	return m
}

// Hooks returns Hooks that update the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnSweep: func(deleted int, duration float64, err error) {
			result := "success"
			if err != nil {
				result = "error"
			}
			m.SweepsTotal.WithLabelValues(result).Inc()
			m.SweptSessionsTotal.Add(float64(deleted))
			m.SweepDuration.Observe(duration)
		},
		OnStats: func(st intake.StoreStats) {
			m.Sessions.WithLabelValues("active").Set(float64(st.Active))
			m.Sessions.WithLabelValues("expired").Set(float64(st.Expired))
		},
	}
}
