package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/soilwatch/internal/services/ingestion"
)

func validPayload() ingestion.Payload {
	return ingestion.Payload{
		"pot_id":       "pot-1",
		"moisture":     map[string]any{"value": 65.0},
		"temperature":  map[string]any{"value": 32.0},
		"uv_intensity": map[string]any{"value": 0.75},
		"device_id":    "esp32-01",
	}
}

func TestValidateReportsFirstMissingField(t *testing.T) {
	cases := []struct {
		drop []string
		want string
	}{
		{[]string{"pot_id", "device_id"}, "pot_id"},
		{[]string{"moisture", "uv_intensity"}, "moisture"},
		{[]string{"temperature", "device_id"}, "temperature"},
		{[]string{"uv_intensity", "device_id"}, "uv_intensity"},
		{[]string{"device_id"}, "device_id"},
	}
	for _, c := range cases {
		p := validPayload()
		for _, k := range c.drop {
			delete(p, k)
		}
		_, err := ingestion.Validate(p)
		var ve *ingestion.ValidationError
		require.ErrorAs(t, err, &ve)
		require.Equal(t, c.want, ve.Field)
		require.Equal(t, "Missing required field: "+c.want, err.Error())
	}
}

func TestValidateRejectsMalformedValues(t *testing.T) {
	p := validPayload()
	p["pot_id"] = "   "
	_, err := ingestion.Validate(p)
	require.EqualError(t, err, "Missing required field: pot_id")

	p = validPayload()
	p["moisture"] = 65.0
	_, err = ingestion.Validate(p)
	require.EqualError(t, err, "Missing required field: moisture")

	p = validPayload()
	p["temperature"] = map[string]any{"value": "hot"}
	_, err = ingestion.Validate(p)
	require.EqualError(t, err, "Missing required field: temperature")

	p = validPayload()
	p["uv_intensity"] = nil
	_, err = ingestion.Validate(p)
	require.EqualError(t, err, "Missing required field: uv_intensity")
}

func TestValidateOptionalFields(t *testing.T) {
	p := validPayload()
	req, err := ingestion.Validate(p)
	require.NoError(t, err)
	require.Equal(t, "pot-1", req.PotName)
	require.Nil(t, req.Timestamp)
	require.Nil(t, req.BatteryLevel)

	p["pot_name"] = "Tanah, Kering"
	p["timestamp"] = "2024-03-01T10:00:00+07:00"
	p["battery_level"] = json.Number("87")
	p["signal_strength"] = -61.0
	req, err = ingestion.Validate(p)
	require.NoError(t, err)
	require.Equal(t, "Tanah, Kering", req.PotName)
	require.Equal(t, time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC), *req.Timestamp)
	require.Equal(t, 87.0, *req.BatteryLevel)
	require.Equal(t, -61.0, *req.SignalStrength)

	// unreadable optional fields are ignored
	p["timestamp"] = "yesterday"
	p["battery_level"] = "full"
	req, err = ingestion.Validate(p)
	require.NoError(t, err)
	require.Nil(t, req.Timestamp)
	require.Nil(t, req.BatteryLevel)
}

func TestValidateAcceptsZeroAndJSONNumbers(t *testing.T) {
	p := validPayload()
	p["moisture"] = map[string]any{"value": json.Number("0")}
	p["pot_id"] = json.Number("12")
	req, err := ingestion.Validate(p)
	require.NoError(t, err)
	require.Equal(t, 0.0, req.Moisture)
	require.Equal(t, "12", req.PotID)
}
