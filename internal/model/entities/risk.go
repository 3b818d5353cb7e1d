package entities

// RiskCategory is the composite contamination class derived from a risk percentage.
type RiskCategory string

const (
	RiskLow    RiskCategory = "low"
	RiskMedium RiskCategory = "medium"
	RiskHigh   RiskCategory = "high"
)

// Valid reports whether c is one of the published categories.
func (c RiskCategory) Valid() bool {
	switch c {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Per-channel bucket labels.
const (
	MoistureDry   = "dry"
	MoistureMoist = "moist"
	MoistureWet   = "wet"

	TemperatureLow    = "low"
	TemperatureNormal = "normal"
	TemperatureHigh   = "high"

	UVLow      = "low"
	UVModerate = "moderate"
	UVHigh     = "high"
)
