package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
)

// Memory keeps both collections in process. Used when no external backend
// is configured and by tests.
type Memory struct {
	mu       sync.RWMutex
	readings []model.Reading
	alerts   []model.Alert
	alertIdx map[string]int
	newID    func() string
}

func NewMemory() *Memory {
	return &Memory{
		alertIdx: make(map[string]int),
		newID:    uuid.NewString,
	}
}

func (m *Memory) Readings() ReadingStore { return memReadings{m} }
func (m *Memory) Alerts() AlertStore     { return memAlerts{m} }

type memReadings struct{ m *Memory }

func (s memReadings) Append(ctx context.Context, r model.Reading) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Wrap("append reading", err)
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	r.ID = s.m.newID()
	s.m.readings = append(s.m.readings, r)
	return r.ID, nil
}

func (s memReadings) Query(ctx context.Context, q ReadingQuery) ([]model.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("query readings", err)
	}
	s.m.mu.RLock()
	out := make([]model.Reading, 0, len(s.m.readings))
	for _, r := range s.m.readings {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	s.m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

type memAlerts struct{ m *Memory }

func (s memAlerts) Append(ctx context.Context, a model.Alert) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Wrap("append alert", err)
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a.ID = s.m.newID()
	s.m.alertIdx[a.ID] = len(s.m.alerts)
	s.m.alerts = append(s.m.alerts, a)
	return a.ID, nil
}

func (s memAlerts) Query(ctx context.Context, q AlertQuery) ([]model.Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("query alerts", err)
	}
	s.m.mu.RLock()
	out := make([]model.Alert, 0, len(s.m.alerts))
	for _, a := range s.m.alerts {
		if q.Match(a) {
			out = append(out, a)
		}
	}
	s.m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s memAlerts) Get(ctx context.Context, id string) (model.Alert, error) {
	if err := ctx.Err(); err != nil {
		return model.Alert{}, Wrap("get alert", err)
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	i, ok := s.m.alertIdx[id]
	if !ok {
		return model.Alert{}, ErrNotFound
	}
	return s.m.alerts[i], nil
}

func (s memAlerts) Update(ctx context.Context, id string, patch model.AlertPatch) error {
	if err := ctx.Err(); err != nil {
		return Wrap("update alert", err)
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	i, ok := s.m.alertIdx[id]
	if !ok {
		return ErrNotFound
	}
	if s.m.alerts[i].IsResolved == patch.IsResolved {
		return ErrAlreadyInState
	}
	s.m.alerts[i] = patch.Apply(s.m.alerts[i])
	return nil
}
