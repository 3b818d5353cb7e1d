package history

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/soilwatch/internal/httpx"
	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/alerting"
)

const defaultPageSize = 50

type RouterConfig struct {
	Engine      *Engine
	Alerts      *alerting.Service
	Metrics     *Metrics
	Gatherer    prometheus.Gatherer
	Checks      []httpx.Check
	MaxPageSize int
	Logger      *log.Logger
	Clock       func() time.Time
}

type api struct {
	engine  *Engine
	alerts  *alerting.Service
	metrics *Metrics
	maxPage int
	logger  *log.Logger
	now     func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpx.NewHealthHandler(cfg.Checks...).ServeHTTP)
	r.Get("/readyz", httpx.NewReadyHandler(cfg.Checks...).ServeHTTP)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Group(Routes(cfg))
	return r
}

// Routes registers the /api query, export and alert endpoints on a router
// group. The ingestion binary mounts it when it owns in-process storage.
func Routes(cfg RouterConfig) func(chi.Router) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 1000
	}
	a := &api{
		engine:  cfg.Engine,
		alerts:  cfg.Alerts,
		metrics: cfg.Metrics,
		maxPage: cfg.MaxPageSize,
		logger:  cfg.Logger,
		now:     cfg.Clock,
	}
	return func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Use(a.count)
		r.Get("/api/sensor-data", a.listReadings)
		r.Get("/api/export", a.export)
		r.Get("/api/alerts", a.listAlerts)
		r.Put("/api/alerts", a.updateAlert)
	}
}

func (a *api) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		a.metrics.Requests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

// parseFilter reads pot_id, category, start_date, end_date and search.
func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		PotID:    strings.TrimSpace(q.Get("pot_id")),
		Category: model.RiskCategory(strings.ToLower(strings.TrimSpace(q.Get("category")))),
		Search:   q.Get("search"),
	}
	if f.Category != "" && f.Category != All && !f.Category.Valid() {
		return Filter{}, errors.New("Invalid category. Use low, medium, high or all.")
	}
	var err error
	if f.Start, err = parseDate(q.Get("start_date"), false); err != nil {
		return Filter{}, errors.New("Invalid start_date")
	}
	if f.End, err = parseDate(q.Get("end_date"), true); err != nil {
		return Filter{}, errors.New("Invalid end_date")
	}
	return f, nil
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// parsePage reads page and page_size. limit is a page size for the first page.
// Without either the listing is capped at defaultPageSize rows; total in the
// response carries the full match count.
func (a *api) parsePage(r *http.Request) Page {
	size := httpx.IntParam(r, "page_size", 0, 1, a.maxPage)
	if size == 0 {
		size = httpx.IntParam(r, "limit", defaultPageSize, 1, a.maxPage)
		if r.URL.Query().Get("limit") != "" {
			return Page{Size: size, Number: 1}
		}
	}
	return Page{Size: size, Number: httpx.IntParam(r, "page", 1, 1, 0)}
}

type readingsResponse struct {
	Success  bool            `json:"success"`
	Data     []model.Reading `json:"data"`
	Count    int             `json:"count"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Counts   Counts          `json:"counts"`
}

// listReadings serves GET /api/sensor-data: one page of matching readings,
// newest first, 50 per page unless limit or page_size says otherwise.
func (a *api) listReadings(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := a.parsePage(r)
	res, err := a.engine.Run(r.Context(), f, p)
	if err != nil {
		httpx.WriteStorageError(w, a.logger, err, "Failed to fetch sensor data")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, readingsResponse{
		Success:  true,
		Data:     res.Items,
		Count:    len(res.Items),
		Total:    res.Total,
		Page:     p.Number,
		PageSize: p.Size,
		Counts:   res.Counts,
	})
}

func (a *api) export(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	readings, err := a.engine.All(r.Context(), f)
	if err != nil {
		httpx.WriteStorageError(w, a.logger, err, "Failed to export data")
		return
	}
	now := a.now()
	body, err := Render(format, readings, now)
	if err != nil {
		a.logger.Printf("history: render %s export: %v", format, err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to export data")
		return
	}
	a.metrics.Exported.WithLabelValues(string(format)).Add(float64(len(readings)))

	w.Header().Set("Content-Type", format.ContentType())
	if format == FormatCSV {
		w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(now)+`"`)
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type alertsResponse struct {
	Success bool            `json:"success"`
	Data    []model.Alert   `json:"data"`
	Counts  alerting.Counts `json:"counts"`
}

func (a *api) listAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var lf alerting.ListFilter
	if v := strings.TrimSpace(q.Get("resolved")); v != "" {
		resolved, err := strconv.ParseBool(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid resolved. Use true or false.")
			return
		}
		lf.Resolved = &resolved
	}
	if sev := model.Severity(strings.ToLower(strings.TrimSpace(q.Get("severity")))); sev != "" && sev != All {
		if !sev.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid severity")
			return
		}
		lf.Severity = sev
	}
	lf.Limit = httpx.IntParam(r, "limit", 0, 1, 0)

	res, err := a.alerts.List(r.Context(), lf)
	if err != nil {
		httpx.WriteStorageError(w, a.logger, err, "Failed to fetch alerts")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, alertsResponse{Success: true, Data: res.Alerts, Counts: res.Counts})
}

type updateRequest struct {
	AlertID    string `json:"alertId"`
	IsResolved *bool  `json:"isResolved"`
	ResolvedBy string `json:"resolvedBy"`
}

type updateResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    model.Alert `json:"data"`
}

func (a *api) updateAlert(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.AlertID) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Alert ID is required")
		return
	}
	if req.IsResolved == nil {
		httpx.WriteError(w, http.StatusBadRequest, "isResolved is required")
		return
	}

	alert, err := a.alerts.Resolve(r.Context(), req.AlertID, *req.IsResolved, strings.TrimSpace(req.ResolvedBy))
	if err != nil {
		httpx.WriteStorageError(w, a.logger, err, "Failed to update alert")
		return
	}
	action := "reopened"
	if *req.IsResolved {
		action = "resolved"
	}
	a.metrics.Resolved.WithLabelValues(action).Inc()
	httpx.WriteJSON(w, http.StatusOK, updateResponse{Success: true, Message: "Alert " + action + " successfully", Data: alert})
}
