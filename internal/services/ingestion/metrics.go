package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Ingested             *prometheus.CounterVec
	Rejected             *prometheus.CounterVec
	AlertsRaised         *prometheus.CounterVec
	AlertPersistFailures prometheus.Counter
	Duplicates           prometheus.Counter
	Duration             prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ingested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "soilwatch_readings_ingested_total",
			Help: "Readings stored, by risk category.",
		}, []string{"category"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "soilwatch_readings_rejected_total",
			Help: "Payloads rejected by validation, by missing field.",
		}, []string{"field"}),
		AlertsRaised: f.NewCounterVec(prometheus.CounterOpts{
			Name: "soilwatch_alerts_raised_total",
			Help: "Alerts stored, by severity.",
		}, []string{"severity"}),
		AlertPersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "soilwatch_alert_persist_failures_total",
			Help: "Alerts lost because their write failed.",
		}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "soilwatch_mqtt_duplicates_total",
			Help: "MQTT redeliveries dropped by the deduper.",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "soilwatch_ingest_duration_seconds",
			Help:    "Time spent in the ingestion pipeline.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
