package entities

import "time"

type AlertType string

const (
	AlertHighRisk    AlertType = "high_risk"
	AlertSensorError AlertType = "sensor_error"
	AlertBatteryLow  AlertType = "battery_low"
	AlertMaintenance AlertType = "maintenance"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Alert is a notable event derived from one reading. Only the resolution
// fields change after creation; ResolvedAt is set iff IsResolved.
type Alert struct {
	ID              string     `json:"id"`
	Type            AlertType  `json:"type"`
	Severity        Severity   `json:"severity"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	PotID           string     `json:"pot_id,omitempty"`
	SourceReadingID string     `json:"sensor_data_id,omitempty"` // weak reference, not owned
	IsResolved      bool       `json:"is_resolved"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// AlertPatch is the only mutation an alert accepts.
type AlertPatch struct {
	IsResolved bool
	ResolvedAt *time.Time
	ResolvedBy string
}

// Apply returns a copy of a with the patch applied.
func (p AlertPatch) Apply(a Alert) Alert {
	a.IsResolved = p.IsResolved
	a.ResolvedAt = p.ResolvedAt
	a.ResolvedBy = p.ResolvedBy
	return a
}
