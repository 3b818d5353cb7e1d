package history

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unsupported format %q. Use csv or json.", e.Format)
}

// ParseFormat accepts csv and json, case-insensitively. Empty means csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", &UnsupportedFormatError{Format: s}
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Filename is the attachment name for an export made at t.
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("soilwatch_data_%s.%s", t.UTC().Format("2006-01-02"), f)
}

var csvHeader = []string{
	"ID",
	"Timestamp",
	"Pot ID",
	"Pot Name",
	"Moisture (%)",
	"Moisture Category",
	"Temperature (°C)",
	"Temperature Category",
	"UV (V)",
	"UV Category",
	"Risk (%)",
	"Risk Category",
	"Device ID",
	"Battery Level (%)",
	"Signal Strength (dBm)",
}

// TimestampLayout is ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Record is the flat export shape of a reading.
type Record struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	PotID               string    `json:"pot_id"`
	PotName             string    `json:"pot_name"`
	MoistureValue       float64   `json:"moisture_value"`
	MoistureCategory    string    `json:"moisture_category"`
	TemperatureValue    float64   `json:"temperature_value"`
	TemperatureCategory string    `json:"temperature_category"`
	UVValue             float64   `json:"uv_value"`
	UVCategory          string    `json:"uv_category"`
	RiskPercentage      float64   `json:"risk_percentage"`
	RiskCategory        string    `json:"risk_category"`
	DeviceID            string    `json:"device_id"`
	BatteryLevel        float64   `json:"battery_level"`
	SignalStrength      float64   `json:"signal_strength"`
}

func ToRecord(r model.Reading) Record {
	return Record{
		ID:                  r.ID,
		Timestamp:           r.Timestamp.UTC(),
		PotID:               r.PotID,
		PotName:             r.PotName,
		MoistureValue:       r.Moisture.Value,
		MoistureCategory:    r.Moisture.Category,
		TemperatureValue:    r.Temperature.Value,
		TemperatureCategory: r.Temperature.Category,
		UVValue:             r.UVIntensity.Value,
		UVCategory:          r.UVIntensity.Category,
		RiskPercentage:      r.Risk.Percentage,
		RiskCategory:        string(r.Risk.Category),
		DeviceID:            r.DeviceID,
		BatteryLevel:        deref(r.BatteryLevel),
		SignalStrength:      deref(r.SignalStrength),
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

type jsonExport struct {
	Success      bool      `json:"success"`
	Data         []Record  `json:"data"`
	ExportedAt   time.Time `json:"exported_at"`
	TotalRecords int       `json:"total_records"`
}

// Render serializes readings in their given order.
func Render(f Format, readings []model.Reading, exportedAt time.Time) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case FormatCSV:
		if err := writeCSV(&buf, readings); err != nil {
			return nil, err
		}
	case FormatJSON:
		out := jsonExport{Success: true, Data: make([]Record, 0, len(readings)), ExportedAt: exportedAt.UTC(), TotalRecords: len(readings)}
		for _, r := range readings {
			out.Data = append(out.Data, ToRecord(r))
		}
		if err := json.NewEncoder(&buf).Encode(out); err != nil {
			return nil, err
		}
	default:
		return nil, &UnsupportedFormatError{Format: string(f)}
	}
	return buf.Bytes(), nil
}

// Write renders first and only writes to w when rendering succeeded.
func Write(w io.Writer, f Format, readings []model.Reading, exportedAt time.Time) error {
	b, err := Render(f, readings, exportedAt)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func writeCSV(w io.Writer, readings []model.Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range readings {
		rec := ToRecord(r)
		row := []string{
			rec.ID,
			rec.Timestamp.Format(TimestampLayout),
			rec.PotID,
			rec.PotName,
			fixed(rec.MoistureValue, 2),
			rec.MoistureCategory,
			fixed(rec.TemperatureValue, 2),
			rec.TemperatureCategory,
			fixed(rec.UVValue, 3),
			rec.UVCategory,
			fixed(rec.RiskPercentage, 2),
			rec.RiskCategory,
			rec.DeviceID,
			fixed(rec.BatteryLevel, 0),
			fixed(rec.SignalStrength, 0),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// fixed rounds half away from zero and always prints places decimals.
func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
