package messages

import (
	"time"

	"github.com/LeonardoBeccarini/soilwatch/internal/model/entities"
)

// AlertEvent is published on event/alert/{pot} when an alert is raised.
type AlertEvent struct {
	AlertID   string             `json:"alert_id"`
	PotID     string             `json:"pot_id"`
	ReadingID string             `json:"sensor_data_id"`
	Type      entities.AlertType `json:"type"`
	Severity  entities.Severity  `json:"severity"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Timestamp time.Time          `json:"timestamp"`
}

func NewAlertEvent(a entities.Alert) AlertEvent {
	return AlertEvent{
		AlertID:   a.ID,
		PotID:     a.PotID,
		ReadingID: a.SourceReadingID,
		Type:      a.Type,
		Severity:  a.Severity,
		Title:     a.Title,
		Message:   a.Message,
		Timestamp: a.CreatedAt,
	}
}
