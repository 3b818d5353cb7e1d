package storage

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitReady pings a backend with exponential backoff until it answers,
// maxElapsed passes or ctx ends.
func WaitReady(ctx context.Context, name string, maxElapsed time.Duration, ping func(context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed

	return backoff.Retry(func() error {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := ping(pctx); err != nil {
			log.Printf("storage: %s not ready: %v", name, err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}
