package alerting

import (
	"context"
	"errors"
	"time"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

type ListFilter struct {
	Resolved *bool
	Severity model.Severity
	Limit    int
}

// Counts tallies the alerts of one listing.
type Counts struct {
	Total      int `json:"total"`
	Unresolved int `json:"unresolved"`
	Critical   int `json:"critical"`
	High       int `json:"high"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
}

type ListResult struct {
	Alerts []model.Alert
	Counts Counts
}

// Service is the operator side of alerts: listing and resolution.
type Service struct {
	store storage.AlertStore
	now   func() time.Time
}

func NewService(store storage.AlertStore) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock replaces the clock used for resolution timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// List returns alerts most recent first. Counts cover the returned alerts.
func (s *Service) List(ctx context.Context, f ListFilter) (ListResult, error) {
	alerts, err := s.store.Query(ctx, storage.AlertQuery{Resolved: f.Resolved, Severity: f.Severity, Limit: f.Limit})
	if err != nil {
		return ListResult{}, err
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	return ListResult{Alerts: alerts, Counts: Tally(alerts)}, nil
}

func Tally(alerts []model.Alert) Counts {
	c := Counts{Total: len(alerts)}
	for _, a := range alerts {
		if !a.IsResolved {
			c.Unresolved++
		}
		switch a.Severity {
		case entities.SeverityCritical:
			c.Critical++
		case entities.SeverityHigh:
			c.High++
		case entities.SeverityMedium:
			c.Medium++
		case entities.SeverityLow:
			c.Low++
		}
	}
	return c
}

// Resolve moves an alert to the requested state. Resolution time and resolver
// are recorded once: resolving a resolved alert returns it unchanged, and of
// two concurrent resolutions only the first write lands.
// Reopening clears both so ResolvedAt stays set iff the alert is resolved.
func (s *Service) Resolve(ctx context.Context, id string, resolved bool, by string) (model.Alert, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Alert{}, err
	}
	if current.IsResolved == resolved {
		return current, nil
	}

	patch := model.AlertPatch{IsResolved: resolved}
	if resolved {
		at := s.now().UTC()
		patch.ResolvedAt = &at
		patch.ResolvedBy = by
	}
	err = s.store.Update(ctx, id, patch)
	if errors.Is(err, storage.ErrAlreadyInState) {
		return s.store.Get(ctx, id)
	}
	if err != nil {
		return model.Alert{}, err
	}
	return patch.Apply(current), nil
}
