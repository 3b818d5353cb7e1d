package alerting

import (
	"fmt"
	"time"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/model/entities"
)

// CriticalAbove is the percentage a high-risk result must exceed to be critical.
const CriticalAbove = 80.0

const highRiskTitle = "High microplastic risk detected"

// Evaluate decides whether a classification raises an alert. Only high-risk
// results do; repeated high readings for one pot each raise their own alert.
func Evaluate(res model.RiskResult, potID, readingID string, now time.Time) (model.Alert, bool) {
	if res.Category != entities.RiskHigh {
		return model.Alert{}, false
	}
	return model.Alert{
		Type:            entities.AlertHighRisk,
		Severity:        SeverityFor(res.Percentage),
		Title:           highRiskTitle,
		Message:         fmt.Sprintf("Detected microplastic risk of %.1f%% at %s", res.Percentage, potID),
		PotID:           potID,
		SourceReadingID: readingID,
		CreatedAt:       now,
	}, true
}

func SeverityFor(pct float64) entities.Severity {
	if pct > CriticalAbove {
		return entities.SeverityCritical
	}
	return entities.SeverityHigh
}
