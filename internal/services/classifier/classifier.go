// Package classifier maps the three soil channels to a composite
// microplastic risk score.
package classifier

import (
	"math"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/model/entities"
)

const (
	HighThreshold   = 70.0
	MediumThreshold = 40.0

	// DefaultConfidence is reported by the threshold ladder until a
	// membership-based confidence replaces it.
	DefaultConfidence = 0.85
)

// Channels are the raw values of one sample: moisture in %, temperature in °C,
// UV intensity in volts.
type Channels struct {
	Moisture    float64
	Temperature float64
	UV          float64
}

// Classifier turns channel values into a risk result. Implementations must be
// pure and total over finite inputs.
type Classifier interface {
	Classify(ch Channels) model.RiskResult
}

// ThresholdClassifier scores each channel on a fixed ladder and sums the
// contributions.
type ThresholdClassifier struct{}

func NewThresholdClassifier() ThresholdClassifier { return ThresholdClassifier{} }

func (ThresholdClassifier) Classify(ch Channels) model.RiskResult {
	score := moistureScore(ch.Moisture) + temperatureScore(ch.Temperature) + uvScore(ch.UV)
	pct := clamp(score)
	return model.RiskResult{
		Percentage: pct,
		Category:   CategoryFor(pct),
		Confidence: DefaultConfidence,
	}
}

func moistureScore(v float64) float64 {
	switch {
	case v > 60:
		return 30
	case v > 40:
		return 20
	default:
		return 10
	}
}

func temperatureScore(v float64) float64 {
	switch {
	case v > 30:
		return 25
	case v > 20:
		return 15
	default:
		return 5
	}
}

func uvScore(v float64) float64 {
	switch {
	case v > 0.7:
		return 20
	case v > 0.4:
		return 15
	default:
		return 10
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(v, 100))
}

// CategoryFor maps a percentage to its category. Lower bounds are inclusive.
func CategoryFor(pct float64) entities.RiskCategory {
	switch {
	case pct >= HighThreshold:
		return entities.RiskHigh
	case pct >= MediumThreshold:
		return entities.RiskMedium
	default:
		return entities.RiskLow
	}
}
