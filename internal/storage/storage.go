// Package storage is the persistence collaborator of the pipeline: an
// append-only reading collection ordered by time and an alert collection
// whose records accept a single resolution patch.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyInState means an alert update lost to a concurrent one, or
	// asked for the state the alert is already in. Nothing was written.
	ErrAlreadyInState = errors.New("alert already in requested state")
	// ErrUnavailable means the store was not even tried (breaker open).
	ErrUnavailable = errors.New("storage unavailable")
)

// PersistenceError wraps any failure of the backing store. Callers log it and
// show a generic message; Err may carry backend details.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Wrap turns a backend failure into a PersistenceError. Nil, ErrNotFound and
// errors that already are PersistenceErrors pass through.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyInState) || errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// ReadingQuery holds the predicates a backend can evaluate itself.
// Zero values match everything; Start and End are inclusive.
type ReadingQuery struct {
	PotID    string
	Category model.RiskCategory
	Start    *time.Time
	End      *time.Time
}

// Match reports whether r satisfies every predicate of q.
func (q ReadingQuery) Match(r model.Reading) bool {
	if q.PotID != "" && r.PotID != q.PotID {
		return false
	}
	if q.Category != "" && r.Risk.Category != q.Category {
		return false
	}
	if q.Start != nil && r.Timestamp.Before(*q.Start) {
		return false
	}
	if q.End != nil && r.Timestamp.After(*q.End) {
		return false
	}
	return true
}

type AlertQuery struct {
	Resolved *bool
	Severity model.Severity
	Limit    int // <= 0 means no cap
}

func (q AlertQuery) Match(a model.Alert) bool {
	if q.Resolved != nil && a.IsResolved != *q.Resolved {
		return false
	}
	if q.Severity != "" && a.Severity != q.Severity {
		return false
	}
	return true
}

// ReadingStore appends readings and returns them most recent first.
type ReadingStore interface {
	Append(ctx context.Context, r model.Reading) (string, error)
	Query(ctx context.Context, q ReadingQuery) ([]model.Reading, error)
}

// AlertStore appends alerts, lists them by creation time (most recent first)
// and applies resolution patches. Update is a compare-and-set on the resolved
// flag: it writes only when the stored flag differs from the patch's and
// returns ErrAlreadyInState otherwise.
type AlertStore interface {
	Append(ctx context.Context, a model.Alert) (string, error)
	Query(ctx context.Context, q AlertQuery) ([]model.Alert, error)
	Get(ctx context.Context, id string) (model.Alert, error)
	Update(ctx context.Context, id string, patch model.AlertPatch) error
}
