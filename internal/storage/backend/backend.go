// Package backend opens the stores selected by configuration and wraps each
// one in a circuit breaker.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/soilwatch/internal/config"
	"github.com/LeonardoBeccarini/soilwatch/internal/httpx"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage/influx"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage/sqlstore"
)

// MaxWriteErrorAge is how long a failed Influx write keeps readiness down.
const MaxWriteErrorAge = 30 * time.Second

type Backends struct {
	Readings storage.ReadingStore
	Alerts   storage.AlertStore
	Checks   []httpx.Check

	closers []func()
}

func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// Open connects every configured backend, waiting for it to answer pings.
// With the memory backends readings and alerts share one in-process store.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Backends, error) {
	if logger == nil {
		logger = log.Default()
	}
	b := &Backends{}
	mem := storage.NewMemory()

	var readings storage.ReadingStore
	switch cfg.Storage.Readings {
	case "influx":
		client := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
		b.closers = append(b.closers, client.Close)
		if err := storage.WaitReady(ctx, "influx", cfg.Storage.ReadyTimeout, pingInflux(client)); err != nil {
			b.Close()
			return nil, fmt.Errorf("influx not reachable: %w", err)
		}
		r, err := influx.NewReadings(client, influx.Config{
			URL:         cfg.Influx.URL,
			Token:       cfg.Influx.Token,
			Org:         cfg.Influx.Org,
			Bucket:      cfg.Influx.Bucket,
			Measurement: cfg.Influx.Measurement,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		readings = r
		b.Checks = append(b.Checks, httpx.Check{Name: "influx", Probe: func(ctx context.Context) error {
			if age := r.LastErrorAge(); age < MaxWriteErrorAge {
				return fmt.Errorf("write failed %s ago", age.Truncate(time.Second))
			}
			return pingInflux(client)(ctx)
		}})
		logger.Printf("storage: readings in influx bucket %s", cfg.Influx.Bucket)
	default:
		readings = mem.Readings()
		logger.Printf("storage: readings in memory")
	}

	var alerts storage.AlertStore
	switch cfg.Storage.Alerts {
	case "mysql":
		db, err := sqlstore.Open(sqlstore.Config{
			User:     cfg.MySQL.User,
			Password: cfg.MySQL.Password,
			Addr:     cfg.MySQL.Addr,
			DBName:   cfg.MySQL.DBName,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := storage.WaitReady(ctx, "mysql", cfg.Storage.ReadyTimeout, db.PingContext); err != nil {
			b.Close()
			return nil, fmt.Errorf("mysql not reachable: %w", err)
		}
		if err := sqlstore.Migrate(ctx, db); err != nil {
			b.Close()
			return nil, err
		}
		alerts = sqlstore.NewAlerts(db)
		b.Checks = append(b.Checks, httpx.Check{Name: "mysql", Probe: pingSQL(db)})
		logger.Printf("storage: alerts in mysql %s/%s", cfg.MySQL.Addr, cfg.MySQL.DBName)
	default:
		alerts = mem.Alerts()
		logger.Printf("storage: alerts in memory")
	}

	settings := func(name string) storage.BreakerSettings {
		return storage.BreakerSettings{
			Name:     name,
			Failures: cfg.Breaker.Failures,
			OpenFor:  cfg.Breaker.OpenFor,
			Interval: cfg.Breaker.Interval,
		}
	}
	rcb := storage.NewBreaker(settings("readings"))
	acb := storage.NewBreaker(settings("alerts"))
	b.Readings = storage.WithReadingBreaker(readings, rcb)
	b.Alerts = storage.WithAlertBreaker(alerts, acb)
	b.Checks = append(b.Checks, breakerCheck(rcb), breakerCheck(acb))
	return b, nil
}

func pingInflux(client influxdb2.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		ok, err := client.Ping(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("influx ping failed")
		}
		return nil
	}
}

func pingSQL(db *sql.DB) func(context.Context) error {
	return db.PingContext
}

func breakerCheck(cb *gobreaker.CircuitBreaker) httpx.Check {
	return httpx.Check{Name: "breaker/" + cb.Name(), Probe: func(context.Context) error {
		if st := cb.State(); st == gobreaker.StateOpen {
			return fmt.Errorf("breaker %s", st)
		}
		return nil
	}}
}
