package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the HTTP API.
type Metrics struct {
	ErrorsTotal    *prometheus.CounterVec
	LabValuesTotal *prometheus.CounterVec
	AuthFailsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns API metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_api_errors_total",
			Help: "API error responses by route and status code.",
		}, []string{"route", "status"}),
		LabValuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_lab_values_extracted_total",
			Help: "Lab values extracted from reports by flag.",
		}, []string{"flag"}),
		AuthFailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carepath_api_auth_failures_total",
			Help: "Rejected admin requests by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.ErrorsTotal,
		m.LabValuesTotal,
		m.AuthFailsTotal,
	)

	return m
}

// Hooks returns API hooks that increment the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnError: func(route string, status int) {
			m.ErrorsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		},
		OnLabValues: func(flag string, n int) {
			if flag == "" {
				flag = "none"
			}
			m.LabValuesTotal.WithLabelValues(flag).Add(float64(n))
		},
		OnAuthFail: func(reason string) {
			m.AuthFailsTotal.WithLabelValues(reason).Inc()
		},
	}
}
