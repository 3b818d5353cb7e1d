// Package influx stores readings in InfluxDB v2, one point per reading.
package influx

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string // default "pot_reading"
}

// Readings writes with the blocking API so an acknowledged reading is
// durable, and tracks the last write error for readiness probes.
type Readings struct {
	writeAPI    api.WriteAPIBlocking
	queryAPI    api.QueryAPI
	bucket      string
	measurement string
	newID       func() string

	mu      sync.RWMutex
	lastErr time.Time
}

func NewReadings(client influxdb2.Client, cfg Config) (*Readings, error) {
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = "pot_reading"
	}
	return &Readings{
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI:    client.QueryAPI(cfg.Org),
		bucket:      cfg.Bucket,
		measurement: sanitizeMeasurement(cfg.Measurement),
		newID:       uuid.NewString,
		lastErr:     time.Now().Add(-24 * time.Hour),
	}, nil
}

func (s *Readings) Append(ctx context.Context, r model.Reading) (string, error) {
	r.ID = s.newID()
	if err := s.writeAPI.WritePoint(ctx, ReadingToPoint(s.measurement, r)); err != nil {
		s.markError()
		return "", storage.Wrap("append reading", err)
	}
	return r.ID, nil
}

func (s *Readings) Query(ctx context.Context, q storage.ReadingQuery) ([]model.Reading, error) {
	res, err := s.queryAPI.Query(ctx, BuildFlux(s.bucket, s.measurement, q))
	if err != nil {
		return nil, storage.Wrap("query readings", err)
	}
	defer res.Close()

	out := make([]model.Reading, 0, 64)
	for res.Next() {
		out = append(out, recordToReading(res.Record().Values(), res.Record().Time()))
	}
	if err := res.Err(); err != nil {
		return nil, storage.Wrap("query readings", err)
	}
	return out, nil
}

// LastErrorAge reports how long ago the last write failed.
func (s *Readings) LastErrorAge() time.Duration {
	if s == nil {
		return 99999 * time.Hour
	}
	s.mu.RLock()
	t := s.lastErr
	s.mu.RUnlock()
	return time.Since(t)
}

func (s *Readings) markError() {
	s.mu.Lock()
	s.lastErr = time.Now()
	s.mu.Unlock()
	log.Printf("influx: reading write failed")
}

// ReadingToPoint maps a reading to a point. Pot, device and risk category
// are tags so the query predicates run inside InfluxDB.
func ReadingToPoint(measurement string, r model.Reading) *write.Point {
	tags := map[string]string{
		"pot_id":        r.PotID,
		"device_id":     r.DeviceID,
		"risk_category": string(r.Risk.Category),
	}
	fields := map[string]interface{}{
		"reading_id":           r.ID,
		"pot_name":             r.PotName,
		"moisture":             r.Moisture.Value,
		"moisture_category":    r.Moisture.Category,
		"temperature":          r.Temperature.Value,
		"temperature_category": r.Temperature.Category,
		"uv_intensity":         r.UVIntensity.Value,
		"uv_category":          r.UVIntensity.Category,
		"risk_percentage":      r.Risk.Percentage,
		"risk_confidence":      r.Risk.Confidence,
		"created_at":           r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.BatteryLevel != nil {
		fields["battery_level"] = *r.BatteryLevel
	}
	if r.SignalStrength != nil {
		fields["signal_strength"] = *r.SignalStrength
	}
	return influxdb2.NewPoint(measurement, tags, fields, r.Timestamp)
}

func recordToReading(v map[string]interface{}, ts time.Time) model.Reading {
	r := model.Reading{
		ID:        str(v["reading_id"]),
		PotID:     str(v["pot_id"]),
		PotName:   str(v["pot_name"]),
		DeviceID:  str(v["device_id"]),
		Timestamp: ts.UTC(),
		Moisture:  model.ChannelReading{Value: num(v["moisture"]), Category: str(v["moisture_category"])},
		Temperature: model.ChannelReading{
			Value:    num(v["temperature"]),
			Category: str(v["temperature_category"]),
		},
		UVIntensity: model.ChannelReading{Value: num(v["uv_intensity"]), Category: str(v["uv_category"])},
		Risk: model.RiskResult{
			Percentage: num(v["risk_percentage"]),
			Category:   model.RiskCategory(str(v["risk_category"])),
			Confidence: num(v["risk_confidence"]),
		},
	}
	if t, err := time.Parse(time.RFC3339Nano, str(v["created_at"])); err == nil {
		r.CreatedAt = t
	}
	if b, ok := v["battery_level"]; ok && b != nil {
		f := num(b)
		r.BatteryLevel = &f
	}
	if s, ok := v["signal_strength"]; ok && s != nil {
		f := num(s)
		r.SignalStrength = &f
	}
	return r
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func num(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return 0
}

func sanitizeMeasurement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
