package classifier

import "github.com/LeonardoBeccarini/soilwatch/internal/model/entities"

// Bucket labels each channel on the same thresholds the ladder scores with,
// so a channel label never disagrees with its score contribution.
func Bucket(ch Channels) (moisture, temperature, uv string) {
	switch {
	case ch.Moisture > 60:
		moisture = entities.MoistureWet
	case ch.Moisture > 40:
		moisture = entities.MoistureMoist
	default:
		moisture = entities.MoistureDry
	}

	switch {
	case ch.Temperature > 30:
		temperature = entities.TemperatureHigh
	case ch.Temperature > 20:
		temperature = entities.TemperatureNormal
	default:
		temperature = entities.TemperatureLow
	}

	switch {
	case ch.UV > 0.7:
		uv = entities.UVHigh
	case ch.UV > 0.4:
		uv = entities.UVModerate
	default:
		uv = entities.UVLow
	}
	return moisture, temperature, uv
}
