package messages

import (
	"time"

	"github.com/LeonardoBeccarini/soilwatch/internal/model/entities"
)

// ChannelReading is one sensor channel: the raw value plus its bucket label.
type ChannelReading struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// RiskResult is produced by the classifier and never edited afterwards.
type RiskResult struct {
	Percentage float64               `json:"percentage"`
	Category   entities.RiskCategory `json:"category"`
	Confidence float64               `json:"confidence"`
}

// Reading is one timestamped sample from a pot plus its derived classification.
// Readings are immutable once stored; a correction is a new Reading.
type Reading struct {
	ID             string         `json:"id"`
	PotID          string         `json:"pot_id"`
	PotName        string         `json:"pot_name"`
	DeviceID       string         `json:"device_id"`
	Timestamp      time.Time      `json:"timestamp"` // when the sample was taken
	Moisture       ChannelReading `json:"moisture"`
	Temperature    ChannelReading `json:"temperature"`
	UVIntensity    ChannelReading `json:"uv_intensity"`
	Risk           RiskResult     `json:"risk_result"`
	BatteryLevel   *float64       `json:"battery_level,omitempty"`
	SignalStrength *float64       `json:"signal_strength,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
