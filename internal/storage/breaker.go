package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/soilwatch/internal/model"
)

type BreakerSettings struct {
	Name     string
	Failures uint32        // consecutive failures before opening
	OpenFor  time.Duration // time spent open before a half-open probe
	Interval time.Duration // closed-state counter reset period, 0 = never
}

// NewBreaker builds a breaker that only counts backend failures: a missing
// record is a normal answer, not a sign the store is down.
func NewBreaker(s BreakerSettings) *gobreaker.CircuitBreaker {
	if s.Failures == 0 {
		s.Failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     s.Name,
		Interval: s.Interval,
		Timeout:  s.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.Failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyInState) ||
				errors.Is(err, context.Canceled)
		},
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker, op string, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &PersistenceError{Op: op, Err: ErrUnavailable}
		}
		return zero, err
	}
	return res.(T), nil
}

type breakerReadings struct {
	next ReadingStore
	cb   *gobreaker.CircuitBreaker
}

// WithReadingBreaker guards a ReadingStore with cb.
func WithReadingBreaker(next ReadingStore, cb *gobreaker.CircuitBreaker) ReadingStore {
	return &breakerReadings{next: next, cb: cb}
}

func (b *breakerReadings) Append(ctx context.Context, r model.Reading) (string, error) {
	return execute(b.cb, "append reading", func() (string, error) { return b.next.Append(ctx, r) })
}

func (b *breakerReadings) Query(ctx context.Context, q ReadingQuery) ([]model.Reading, error) {
	return execute(b.cb, "query readings", func() ([]model.Reading, error) { return b.next.Query(ctx, q) })
}

type breakerAlerts struct {
	next AlertStore
	cb   *gobreaker.CircuitBreaker
}

// WithAlertBreaker guards an AlertStore with cb.
func WithAlertBreaker(next AlertStore, cb *gobreaker.CircuitBreaker) AlertStore {
	return &breakerAlerts{next: next, cb: cb}
}

func (b *breakerAlerts) Append(ctx context.Context, a model.Alert) (string, error) {
	return execute(b.cb, "append alert", func() (string, error) { return b.next.Append(ctx, a) })
}

func (b *breakerAlerts) Query(ctx context.Context, q AlertQuery) ([]model.Alert, error) {
	return execute(b.cb, "query alerts", func() ([]model.Alert, error) { return b.next.Query(ctx, q) })
}

func (b *breakerAlerts) Get(ctx context.Context, id string) (model.Alert, error) {
	return execute(b.cb, "get alert", func() (model.Alert, error) { return b.next.Get(ctx, id) })
}

func (b *breakerAlerts) Update(ctx context.Context, id string, patch model.AlertPatch) error {
	_, err := execute(b.cb, "update alert", func() (struct{}, error) {
		return struct{}{}, b.next.Update(ctx, id, patch)
	})
	return err
}
