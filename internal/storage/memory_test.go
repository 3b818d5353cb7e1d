package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func reading(pot string, cat model.RiskCategory, at time.Time) model.Reading {
	return model.Reading{PotID: pot, DeviceID: "ESP32_001", Timestamp: at, Risk: model.RiskResult{Category: cat}}
}

func TestMemoryReadingsOrderedMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	rs := storage.NewMemory().Readings()

	for _, off := range []int{2, 0, 3, 1} {
		_, err := rs.Append(ctx, reading("pot_1", model.RiskLow, t0.Add(time.Duration(off)*time.Hour)))
		require.NoError(t, err)
	}

	got, err := rs.Query(ctx, storage.ReadingQuery{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 0; i+1 < len(got); i++ {
		require.False(t, got[i].Timestamp.Before(got[i+1].Timestamp))
	}
}

func TestMemoryReadingsAssignsIDs(t *testing.T) {
	ctx := context.Background()
	rs := storage.NewMemory().Readings()

	id1, err := rs.Append(ctx, reading("pot_1", model.RiskLow, t0))
	require.NoError(t, err)
	id2, err := rs.Append(ctx, reading("pot_1", model.RiskLow, t0))
	require.NoError(t, err)
	require.NotEmpty(t, id1)
	require.NotEqual(t, id1, id2)

	got, err := rs.Query(ctx, storage.ReadingQuery{})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{id1, id2}, []string{got[0].ID, got[1].ID})
}

func TestMemoryReadingsPredicates(t *testing.T) {
	ctx := context.Background()
	rs := storage.NewMemory().Readings()
	_, _ = rs.Append(ctx, reading("pot_1", model.RiskHigh, t0))
	_, _ = rs.Append(ctx, reading("pot_2", model.RiskHigh, t0.Add(time.Hour)))
	_, _ = rs.Append(ctx, reading("pot_1", model.RiskLow, t0.Add(2*time.Hour)))

	got, err := rs.Query(ctx, storage.ReadingQuery{PotID: "pot_1"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = rs.Query(ctx, storage.ReadingQuery{Category: model.RiskHigh})
	require.NoError(t, err)
	require.Len(t, got, 2)

	start, end := t0.Add(time.Hour), t0.Add(2*time.Hour)
	got, err = rs.Query(ctx, storage.ReadingQuery{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, got, 2, "both bounds are inclusive")
}

func TestMemoryAlertsLifecycle(t *testing.T) {
	ctx := context.Background()
	as := storage.NewMemory().Alerts()

	id, err := as.Append(ctx, model.Alert{Severity: "high", CreatedAt: t0})
	require.NoError(t, err)
	_, err = as.Append(ctx, model.Alert{Severity: "critical", CreatedAt: t0.Add(time.Minute)})
	require.NoError(t, err)

	list, err := as.Query(ctx, storage.AlertQuery{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, model.Severity("critical"), list[0].Severity)

	at := t0.Add(time.Hour)
	require.NoError(t, as.Update(ctx, id, model.AlertPatch{IsResolved: true, ResolvedAt: &at, ResolvedBy: "op"}))

	a, err := as.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, a.IsResolved)
	require.Equal(t, at, *a.ResolvedAt)
	require.Equal(t, t0, a.CreatedAt)

	resolved := true
	list, err = as.Query(ctx, storage.AlertQuery{Resolved: &resolved})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = as.Query(ctx, storage.AlertQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMemoryAlertsUnknownID(t *testing.T) {
	ctx := context.Background()
	as := storage.NewMemory().Alerts()

	_, err := as.Get(ctx, "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, as.Update(ctx, "nope", model.AlertPatch{}), storage.ErrNotFound)
}

func TestMemoryAlertsUpdateOnlyTransitions(t *testing.T) {
	ctx := context.Background()
	as := storage.NewMemory().Alerts()
	id, err := as.Append(ctx, model.Alert{Severity: "high", CreatedAt: t0})
	require.NoError(t, err)

	first := t0.Add(time.Hour)
	second := t0.Add(2 * time.Hour)
	require.NoError(t, as.Update(ctx, id, model.AlertPatch{IsResolved: true, ResolvedAt: &first, ResolvedBy: "a"}))
	require.ErrorIs(t, as.Update(ctx, id, model.AlertPatch{IsResolved: true, ResolvedAt: &second, ResolvedBy: "b"}), storage.ErrAlreadyInState)

	a, err := as.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, first, *a.ResolvedAt)
	require.Equal(t, "a", a.ResolvedBy)
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.NewMemory().Readings().Append(ctx, reading("pot_1", model.RiskLow, t0))
	var pe *storage.PersistenceError
	require.ErrorAs(t, err, &pe)
}
