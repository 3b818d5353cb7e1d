package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/LeonardoBeccarini/soilwatch/internal/config"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/alerting"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/history"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage/backend"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir, config.ServiceHistory)
	if err != nil {
		log.Fatalf("history: config: %v", err)
	}
	logger := log.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("history: storage: %v", err)
	}
	defer stores.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := history.NewRouter(history.RouterConfig{
		Engine:      history.NewEngine(stores.Readings),
		Alerts:      alerting.NewService(stores.Alerts),
		Metrics:     history.NewMetrics(reg),
		Gatherer:    reg,
		Checks:      stores.Checks,
		MaxPageSize: cfg.HTTP.MaxPageSize,
		Logger:      logger,
	})

	hs := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	go func() {
		log.Printf("history: HTTP listening on %s", cfg.HTTP.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("history: http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("history: shutting down...")

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	_ = hs.Shutdown(shCtx)
}
