package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Exported *prometheus.CounterVec
	Resolved *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "soilwatch_history_requests_total",
			Help: "Operator requests, by route and status code.",
		}, []string{"route", "code"}),
		Exported: f.NewCounterVec(prometheus.CounterOpts{
			Name: "soilwatch_export_records_total",
			Help: "Readings written to exports, by format.",
		}, []string{"format"}),
		Resolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "soilwatch_alert_transitions_total",
			Help: "Alert resolution changes, by action.",
		}, []string{"action"}),
	}
}
