// Package history is the operator surface over stored readings and alerts:
// filtered and paginated listings, counts and exports.
package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

// All is the wildcard accepted for pot and category filters.
const All = "all"

// Filter is a conjunction of predicates; zero fields match everything.
// Start and End are inclusive.
type Filter struct {
	PotID    string
	Category model.RiskCategory
	Start    *time.Time
	End      *time.Time
	Search   string // case-insensitive substring of pot name or device id
}

func (f Filter) normalized() Filter {
	if strings.EqualFold(f.PotID, All) {
		f.PotID = ""
	}
	if strings.EqualFold(string(f.Category), All) {
		f.Category = ""
	}
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))
	return f
}

func (f Filter) storeQuery() storage.ReadingQuery {
	return storage.ReadingQuery{PotID: f.PotID, Category: f.Category, Start: f.Start, End: f.End}
}

func (f Filter) match(r model.Reading) bool {
	if !f.storeQuery().Match(r) {
		return false
	}
	if f.Search != "" &&
		!strings.Contains(strings.ToLower(r.PotName), f.Search) &&
		!strings.Contains(strings.ToLower(r.DeviceID), f.Search) {
		return false
	}
	return true
}

// Apply returns the readings matching f, most recent first. Readings with
// equal timestamps keep their input order.
func Apply(readings []model.Reading, f Filter) []model.Reading {
	f = f.normalized()
	out := make([]model.Reading, 0, len(readings))
	for _, r := range readings {
		if f.match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// Page selects a 1-based slice of an ordered result. Size <= 0 means the
// whole result on page 1.
type Page struct {
	Size   int
	Number int
}

// Paginate never fails: a page past the end is empty.
func Paginate(items []model.Reading, p Page) []model.Reading {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		if p.Number == 1 {
			return items
		}
		return []model.Reading{}
	}
	pages := len(items) / p.Size
	if len(items)%p.Size != 0 {
		pages++
	}
	if p.Number > pages {
		return []model.Reading{}
	}
	start := (p.Number - 1) * p.Size
	end := start + p.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type Counts struct {
	Total  int `json:"total"`
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

func Tally(items []model.Reading) Counts {
	c := Counts{Total: len(items)}
	for _, r := range items {
		switch r.Risk.Category {
		case model.RiskLow:
			c.Low++
		case model.RiskMedium:
			c.Medium++
		case model.RiskHigh:
			c.High++
		}
	}
	return c
}

type Result struct {
	Items  []model.Reading
	Total  int
	Counts Counts
}

// Engine runs filters against a ReadingStore. Equality and range predicates
// are pushed to the store; all predicates and the ordering are applied again
// in process so every backend answers identically.
type Engine struct {
	store storage.ReadingStore
}

func NewEngine(store storage.ReadingStore) *Engine { return &Engine{store: store} }

// All returns the whole filtered set, for exports.
func (e *Engine) All(ctx context.Context, f Filter) ([]model.Reading, error) {
	f = f.normalized()
	rs, err := e.store.Query(ctx, f.storeQuery())
	if err != nil {
		return nil, err
	}
	return Apply(rs, f), nil
}

// Run returns one page plus the total and category counts of the filtered set.
func (e *Engine) Run(ctx context.Context, f Filter, p Page) (Result, error) {
	all, err := e.All(ctx, f)
	if err != nil {
		return Result{}, err
	}
	return Result{Items: Paginate(all, p), Total: len(all), Counts: Tally(all)}, nil
}
