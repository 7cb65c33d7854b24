package rx

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for prescription checks.
type Metrics struct {
	ChecksTotal       *prometheus.CounterVec
	FindingsTotal     *prometheus.CounterVec
	UnrecognizedTotal prometheus.Counter
}

// NewMetrics registers and returns rx metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_rx_checks_total",
			Help: "Total prescription checks by overall risk.",
		}, []string{"overall_risk"}),
		FindingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_rx_findings_total",
			Help: "Total prescription findings by kind and severity.",
		}, []string{"kind", "severity"}),
		UnrecognizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carepath_rx_unrecognized_names_total",
			Help: "Total medication names not found in any table.",
		}),
	}

	reg.MustRegister(m.ChecksTotal, m.FindingsTotal, m.UnrecognizedTotal)

	return m
}

// Hooks returns CheckerHooks that increment the corresponding metrics.
func (m *Metrics) Hooks() CheckerHooks {
	return CheckerHooks{
		OnCheck: func(r Report) {
			m.ChecksTotal.WithLabelValues(r.OverallRisk.String()).Inc()
			for _, f := range r.Findings {
				m.FindingsTotal.WithLabelValues(f.Kind, f.Severity.String()).Inc()
			}
			m.UnrecognizedTotal.Add(float64(len(r.Unrecognized)))
		},
	}
}
