// Package ingestion turns device payloads into stored, classified readings
// and raises alerts for high-risk ones.
package ingestion

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/alerting"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/classifier"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

// Ack is returned once the reading is durable. Alert is set only when an
// alert was raised and stored.
type Ack struct {
	ID    string
	Alert *model.Alert
}

type Options struct {
	Notifier alerting.Notifier
	Metrics  *Metrics
	Logger   *log.Logger
	Clock    func() time.Time
}

type Pipeline struct {
	readings   storage.ReadingStore
	alerts     storage.AlertStore
	classifier classifier.Classifier
	notifier   alerting.Notifier
	metrics    *Metrics
	logger     *log.Logger
	now        func() time.Time
}

func NewPipeline(readings storage.ReadingStore, alerts storage.AlertStore, cls classifier.Classifier, opts Options) *Pipeline {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Pipeline{
		readings:   readings,
		alerts:     alerts,
		classifier: cls,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Clock,
	}
}

// Ingest validates, classifies and stores one reading, then evaluates the
// alert policy against it. A validation error means nothing was written. A
// reading write failure aborts before the policy runs. An alert write failure
// is logged and the reading is still acknowledged.
func (p *Pipeline) Ingest(ctx context.Context, payload Payload) (Ack, error) {
	start := time.Now()
	defer func() { p.metrics.Duration.Observe(time.Since(start).Seconds()) }()

	req, err := Validate(payload)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			p.metrics.Rejected.WithLabelValues(ve.Field).Inc()
		}
		return Ack{}, err
	}

	ch := classifier.Channels{Moisture: req.Moisture, Temperature: req.Temperature, UV: req.UV}
	res := p.classifier.Classify(ch)
	mCat, tCat, uvCat := classifier.Bucket(ch)

	now := p.now().UTC()
	ts := now
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	reading := model.Reading{
		PotID:          req.PotID,
		PotName:        req.PotName,
		DeviceID:       req.DeviceID,
		Timestamp:      ts,
		Moisture:       model.ChannelReading{Value: req.Moisture, Category: mCat},
		Temperature:    model.ChannelReading{Value: req.Temperature, Category: tCat},
		UVIntensity:    model.ChannelReading{Value: req.UV, Category: uvCat},
		Risk:           res,
		BatteryLevel:   req.BatteryLevel,
		SignalStrength: req.SignalStrength,
		CreatedAt:      now,
	}

	id, err := p.readings.Append(ctx, reading)
	if err != nil {
		return Ack{}, storage.Wrap("append reading", err)
	}
	p.metrics.Ingested.WithLabelValues(string(res.Category)).Inc()

	alert, raise := alerting.Evaluate(res, req.PotID, id, now)
	if !raise {
		return Ack{ID: id}, nil
	}

	// once the reading is committed the alert write outlives the caller's context
	actx := context.WithoutCancel(ctx)
	alertID, err := p.alerts.Append(actx, alert)
	if err != nil {
		p.metrics.AlertPersistFailures.Inc()
		p.logger.Printf("ingestion: %v", &alerting.AlertPersistenceError{PotID: req.PotID, ReadingID: id, Err: err})
		return Ack{ID: id}, nil
	}
	alert.ID = alertID
	p.metrics.AlertsRaised.WithLabelValues(string(alert.Severity)).Inc()

	if p.notifier != nil {
		if err := p.notifier.Notify(actx, alert); err != nil {
			p.logger.Printf("ingestion: notify alert %s: %v", alert.ID, err)
		}
	}
	return Ack{ID: id, Alert: &alert}, nil
}
