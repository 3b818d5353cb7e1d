package ingestion

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Payload is a raw device message as decoded from JSON.
type Payload map[string]any

// ValidationError names the first required field the payload lacks.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string { return "Missing required field: " + e.Field }

// Request is a payload that passed validation.
type Request struct {
	PotID          string
	PotName        string
	DeviceID       string
	Moisture       float64
	Temperature    float64
	UV             float64
	Timestamp      *time.Time
	BatteryLevel   *float64
	SignalStrength *float64
}

// Validate checks pot_id, moisture, temperature, uv_intensity and device_id in
// that order and reports the first one missing. Optional fields that cannot be
// read are ignored.
func Validate(p Payload) (Request, error) {
	var req Request
	var ok bool

	if req.PotID, ok = identity(p["pot_id"]); !ok {
		return Request{}, &ValidationError{Field: "pot_id"}
	}
	if req.Moisture, ok = channel(p["moisture"]); !ok {
		return Request{}, &ValidationError{Field: "moisture"}
	}
	if req.Temperature, ok = channel(p["temperature"]); !ok {
		return Request{}, &ValidationError{Field: "temperature"}
	}
	if req.UV, ok = channel(p["uv_intensity"]); !ok {
		return Request{}, &ValidationError{Field: "uv_intensity"}
	}
	if req.DeviceID, ok = identity(p["device_id"]); !ok {
		return Request{}, &ValidationError{Field: "device_id"}
	}

	req.PotName = req.PotID
	if name, ok := p["pot_name"].(string); ok && strings.TrimSpace(name) != "" {
		req.PotName = name
	}
	if s, ok := p["timestamp"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ts = ts.UTC()
			req.Timestamp = &ts
		}
	}
	if v, ok := number(p["battery_level"]); ok {
		req.BatteryLevel = &v
	}
	if v, ok := number(p["signal_strength"]); ok {
		req.SignalStrength = &v
	}
	return req, nil
}

func identity(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		return x, x != ""
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}

func channel(v any) (float64, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	return number(obj["value"])
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case int:
		return float64(x), true
	}
	return 0, false
}
