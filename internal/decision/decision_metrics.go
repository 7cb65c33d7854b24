package decision

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the decision engine.
type Metrics struct {
	VerdictsTotal     *prometheus.CounterVec
	RedFlagsTotal     *prometheus.CounterVec
	AugmentsTotal     *prometheus.CounterVec
	AugmentDuration   prometheus.Histogram
	ScoringBandsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns decision metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VerdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_verdicts_total",
			Help: "Total verdicts by system action and urgency tier.",
		}, []string{"system_action", "urgency_tier"}),
		RedFlagsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_red_flags_total",
			Help: "Total red-flag rule matches by rule id.",
		}, []string{"rule"}),
		AugmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_verdict_augments_total",
			Help: "Total prose augmentation attempts by result.",
		}, []string{"result"}),
		AugmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carepath_verdict_augment_duration_seconds",
			Help:    "Duration of prose augmentation calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. ~32s
		}),
		ScoringBandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_scoring_bands_total",
			Help: "Total scored verdicts by band id.",
		}, []string{"band"}),
	}

	reg.MustRegister(
		m.VerdictsTotal,
		m.RedFlagsTotal,
		m.AugmentsTotal,
		m.AugmentDuration,
		m.ScoringBandsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnVerdict: func(v Verdict) {
			m.VerdictsTotal.WithLabelValues(string(v.SystemAction), string(v.UrgencyTier)).Inc()
			if v.IsBreaker() {
				for _, id := range v.Rationale {
					m.RedFlagsTotal.WithLabelValues(id).Inc()
				}
				return
			}
			if len(v.Rationale) > 0 {
				m.ScoringBandsTotal.WithLabelValues(v.Rationale[0]).Inc()
			}
		},
		OnAugment: func(duration float64, err error) {
			result := "success"
			if err != nil {
				result = "error"
			}
			m.AugmentsTotal.WithLabelValues(result).Inc()
			m.AugmentDuration.Observe(duration)
		},
	}
}
