package ingestion_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/soilwatch/internal/httpx"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/alerting"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/history"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/ingestion"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sensor-data", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

const highBody = `{"pot_id":"pot-1","pot_name":"Pot A","device_id":"esp32-01",
	"moisture":{"value":65},"temperature":{"value":32},"uv_intensity":{"value":0.75},
	"battery_level":90}`

func TestPostSensorData(t *testing.T) {
	f := newFixture(nil, nil)
	h := ingestion.NewRouter(ingestion.RouterConfig{Pipeline: f.pipeline})

	rec := post(h, highBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
		Message string `json:"message"`
		AlertID string `json:"alert_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.NotEmpty(t, body.ID)
	require.NotEmpty(t, body.AlertID)
	require.Equal(t, "Sensor data added successfully", body.Message)

	readings, _ := f.mem.Readings().Query(context.Background(), storage.ReadingQuery{})
	require.Len(t, readings, 1)
	require.Equal(t, 90.0, *readings[0].BatteryLevel)
}

func TestPostSensorDataMissingField(t *testing.T) {
	f := newFixture(nil, nil)
	h := ingestion.NewRouter(ingestion.RouterConfig{Pipeline: f.pipeline})

	rec := post(h, `{"pot_id":"pot-1","moisture":{"value":65}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"success":false,"error":"Missing required field: temperature"}`, rec.Body.String())

	rec = post(h, `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostSensorDataStorageFailureIsGeneric(t *testing.T) {
	readings := &mockReadings{}
	readings.On("Append", mock.Anything, mock.Anything).Return("", errors.New("dial tcp 10.0.0.3:8086: refused"))
	f := newFixture(readings, nil)
	h := ingestion.NewRouter(ingestion.RouterConfig{Pipeline: f.pipeline})

	rec := post(h, highBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"success":false,"error":"Failed to add sensor data"}`, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestPostSensorDataBreakerOpen(t *testing.T) {
	readings := &mockReadings{}
	readings.On("Append", mock.Anything, mock.Anything).Return("", &storage.PersistenceError{Op: "append reading", Err: storage.ErrUnavailable})
	f := newFixture(readings, nil)
	h := ingestion.NewRouter(ingestion.RouterConfig{Pipeline: f.pipeline})

	rec := post(h, highBody)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	f := newFixture(nil, nil)
	reg := prometheus.NewRegistry()
	ingestion.NewMetrics(reg)
	h := ingestion.NewRouter(ingestion.RouterConfig{
		Pipeline: f.pipeline,
		Gatherer: reg,
		Checks:   []httpx.Check{{Name: "db", Probe: func(context.Context) error { return errors.New("down") }}},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "soilwatch_ingest_duration_seconds")
}

func TestHistoryRoutesShareInProcessStorage(t *testing.T) {
	f := newFixture(nil, nil)
	h := ingestion.NewRouter(ingestion.RouterConfig{
		Pipeline: f.pipeline,
		Routes: []func(chi.Router){history.Routes(history.RouterConfig{
			Engine: history.NewEngine(f.mem.Readings()),
			Alerts: alerting.NewService(f.mem.Alerts()),
		})},
	})

	rec := post(h, highBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var ack struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sensor-data?pot_id=pot-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	require.Equal(t, ack.ID, list.Data[0].ID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"sensor_data_id":"`+ack.ID+`"`)
}
