package history_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/history"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func mk(id, pot, name, device string, cat model.RiskCategory, at time.Time) model.Reading {
	return model.Reading{
		ID: id, PotID: pot, PotName: name, DeviceID: device, Timestamp: at,
		Risk: model.RiskResult{Percentage: 50, Category: cat, Confidence: 0.85},
	}
}

func sample() []model.Reading {
	return []model.Reading{
		mk("r1", "pot-1", "Tanah, Kering", "esp-A", model.RiskHigh, base.Add(1*time.Hour)),
		mk("r2", "pot-2", "Greenhouse", "esp-B", model.RiskLow, base.Add(5*time.Hour)),
		mk("r3", "pot-1", "Tanah, Kering", "esp-A", model.RiskMedium, base.Add(3*time.Hour)),
		mk("r4", "pot-3", "Balcony", "ESP-C", model.RiskHigh, base.Add(4*time.Hour)),
		mk("r5", "pot-2", "Greenhouse", "esp-B", model.RiskHigh, base.Add(2*time.Hour)),
	}
}

func ids(rs []model.Reading) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestApplyOrdersMostRecentFirst(t *testing.T) {
	got := history.Apply(sample(), history.Filter{})
	require.Equal(t, []string{"r2", "r4", "r3", "r5", "r1"}, ids(got))
	for i := 0; i+1 < len(got); i++ {
		require.False(t, got[i].Timestamp.Before(got[i+1].Timestamp))
	}
}

func TestApplyPredicates(t *testing.T) {
	rs := sample()
	require.Equal(t, []string{"r3", "r1"}, ids(history.Apply(rs, history.Filter{PotID: "pot-1"})))
	require.Len(t, history.Apply(rs, history.Filter{PotID: "all", Category: "all"}), 5)
	require.Equal(t, []string{"r4", "r5", "r1"}, ids(history.Apply(rs, history.Filter{Category: model.RiskHigh})))

	start, end := base.Add(2*time.Hour), base.Add(4*time.Hour)
	require.Equal(t, []string{"r4", "r3", "r5"}, ids(history.Apply(rs, history.Filter{Start: &start, End: &end})))

	require.Equal(t, []string{"r3", "r1"}, ids(history.Apply(rs, history.Filter{Search: "kering"})))
	require.Equal(t, []string{"r4"}, ids(history.Apply(rs, history.Filter{Search: "esp-c"})))
	require.Empty(t, history.Apply(rs, history.Filter{PotID: "pot-1", Category: model.RiskLow}))
}

func TestPaginateConcatenationReproducesSet(t *testing.T) {
	var rs []model.Reading
	for i := 0; i < 23; i++ {
		rs = append(rs, mk(fmt.Sprintf("r%02d", i), "pot-1", "", "", model.RiskLow, base.Add(time.Duration(i)*time.Minute)))
	}
	ordered := history.Apply(rs, history.Filter{})

	for _, size := range []int{1, 4, 5, 23, 50} {
		var all []model.Reading
		for n := 1; ; n++ {
			page := history.Paginate(ordered, history.Page{Size: size, Number: n})
			if len(page) == 0 {
				break
			}
			require.LessOrEqual(t, len(page), size)
			all = append(all, page...)
		}
		require.Equal(t, ids(ordered), ids(all), "page size %d", size)
	}
}

func TestPaginateEdges(t *testing.T) {
	rs := history.Apply(sample(), history.Filter{})
	require.Empty(t, history.Paginate(rs, history.Page{Size: 2, Number: 4}))
	require.NotNil(t, history.Paginate(rs, history.Page{Size: 2, Number: 4}))
	require.Len(t, history.Paginate(rs, history.Page{Size: 0, Number: 1}), 5)
	require.Empty(t, history.Paginate(rs, history.Page{Size: 0, Number: 2}))
	require.Equal(t, []string{"r2", "r4"}, ids(history.Paginate(rs, history.Page{Size: 2, Number: 0})))
	require.Empty(t, history.Paginate(rs, history.Page{Size: 3, Number: math.MaxInt64 / 2}))
	require.Empty(t, history.Paginate(rs, history.Page{Size: math.MaxInt64, Number: 2}))
}

func TestTally(t *testing.T) {
	c := history.Tally(sample())
	require.Equal(t, history.Counts{Total: 5, Low: 1, Medium: 1, High: 3}, c)
}

func seedStore(t *testing.T, rs []model.Reading) storage.ReadingStore {
	t.Helper()
	store := storage.NewMemory().Readings()
	for _, r := range rs {
		_, err := store.Append(context.Background(), r)
		require.NoError(t, err)
	}
	return store
}

func TestEngineHighLimitTwo(t *testing.T) {
	var rs []model.Reading
	for i := 0; i < 5; i++ {
		rs = append(rs, mk("", "pot-1", "", "", model.RiskHigh, base.Add(time.Duration(i)*time.Hour)))
	}
	rs = append(rs, mk("", "pot-1", "", "", model.RiskLow, base.Add(10*time.Hour)))
	engine := history.NewEngine(seedStore(t, rs))

	res, err := engine.Run(context.Background(), history.Filter{PotID: "all", Category: model.RiskHigh}, history.Page{Size: 2, Number: 1})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Equal(t, base.Add(4*time.Hour), res.Items[0].Timestamp)
	require.Equal(t, base.Add(3*time.Hour), res.Items[1].Timestamp)
	require.Equal(t, 5, res.Total)
	require.Equal(t, history.Counts{Total: 5, High: 5}, res.Counts)
}

type failingStore struct{ storage.ReadingStore }

func (failingStore) Query(context.Context, storage.ReadingQuery) ([]model.Reading, error) {
	return nil, &storage.PersistenceError{Op: "query readings", Err: errors.New("boom")}
}

func TestEnginePropagatesStoreErrors(t *testing.T) {
	_, err := history.NewEngine(failingStore{}).Run(context.Background(), history.Filter{}, history.Page{})
	var pe *storage.PersistenceError
	require.ErrorAs(t, err, &pe)
}
