package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/soilwatch/internal/httpx"
)

const maxBodyBytes = 1 << 20

type RouterConfig struct {
	Pipeline *Pipeline
	Feed     http.Handler // websocket alert feed, optional
	Gatherer prometheus.Gatherer
	Checks   []httpx.Check
	Routes   []func(chi.Router) // extra route groups served beside /api/sensor-data
	Logger   *log.Logger
}

type api struct {
	pipeline *Pipeline
	logger   *log.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	a := &api{pipeline: cfg.Pipeline, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpx.NewHealthHandler(cfg.Checks...).ServeHTTP)
	r.Get("/readyz", httpx.NewReadyHandler(cfg.Checks...).ServeHTTP)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.Feed != nil {
		r.Get("/ws/alerts", cfg.Feed.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Post("/api/sensor-data", a.postReading)
	})
	for _, fn := range cfg.Routes {
		r.Group(fn)
	}
	return r
}

type ackBody struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Message string `json:"message"`
	AlertID string `json:"alert_id,omitempty"`
}

func (a *api) postReading(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Request body too large or unreadable")
		return
	}
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil || p == nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ack, err := a.pipeline.Ingest(r.Context(), p)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			httpx.WriteError(w, http.StatusBadRequest, ve.Error())
			return
		}
		httpx.WriteStorageError(w, a.logger, err, "Failed to add sensor data")
		return
	}

	out := ackBody{Success: true, ID: ack.ID, Message: "Sensor data added successfully"}
	if ack.Alert != nil {
		out.AlertID = ack.Alert.ID
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
