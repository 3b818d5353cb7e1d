package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/soilwatch/internal/config"
	"github.com/LeonardoBeccarini/soilwatch/internal/httpx"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/alerting"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/classifier"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/history"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/ingestion"
	"github.com/LeonardoBeccarini/soilwatch/internal/storage/backend"
	"github.com/LeonardoBeccarini/soilwatch/pkg/dedup"
	"github.com/LeonardoBeccarini/soilwatch/pkg/feed"
	"github.com/LeonardoBeccarini/soilwatch/pkg/rabbitmq"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir, config.ServiceIngestion)
	if err != nil {
		log.Fatalf("ingestion: config: %v", err)
	}
	logger := log.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === Storage ===
	stores, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("ingestion: storage: %v", err)
	}
	defer stores.Close()
	checks := stores.Checks

	// === Metrics ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := ingestion.NewMetrics(reg)

	// === Notifiers ===
	var notifiers alerting.MultiNotifier
	var hub *feed.Hub
	if cfg.Feed.Enabled {
		hub = feed.NewHub(cfg.Feed.SendBuffer)
		go hub.Run(ctx)
		notifiers = append(notifiers, alerting.NewFeedNotifier(hub))
	}

	var mqttClient mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = rabbitmq.NewRabbitMQConn(&rabbitmq.RabbitMQConfig{
			Host:     cfg.MQTT.Host,
			Port:     cfg.MQTT.Port,
			User:     cfg.MQTT.User,
			Password: cfg.MQTT.Password,
			ClientID: cfg.MQTT.ClientID,
		}, ctx)
		if err != nil {
			log.Fatalf("ingestion: mqtt: %v", err)
		}
		defer rabbitmq.CloseRabbitMQConn(mqttClient)
		notifiers = append(notifiers, alerting.NewMQTTNotifier(rabbitmq.NewPublisher(mqttClient), cfg.MQTT.AlertTopic))
		checks = append(checks, httpx.Check{Name: "mqtt", Probe: func(context.Context) error {
			if !mqttClient.IsConnectionOpen() {
				return errors.New("not connected")
			}
			return nil
		}})
	}

	pipeline := ingestion.NewPipeline(stores.Readings, stores.Alerts, classifier.NewThresholdClassifier(), ingestion.Options{
		Notifier: notifiers,
		Metrics:  metrics,
		Logger:   logger,
	})

	// === MQTT intake ===
	if mqttClient != nil {
		intake := ingestion.NewMQTTIntake(pipeline, dedup.New(cfg.Dedup.TTL, cfg.Dedup.MaxKeys), logger)
		consumer := rabbitmq.NewConsumer(mqttClient, cfg.MQTT.ReadingsTopic, 1, intake.Handle)
		go func() {
			if err := consumer.ConsumeMessage(ctx); err != nil {
				log.Fatalf("ingestion: %v", err)
			}
		}()
	}

	// === gRPC health ===
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Fatalf("ingestion: listen %s: %v", cfg.GRPC.Addr, err)
	}
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	go ingestion.ReportHealth(ctx, hs, 5*time.Second, checks)
	go func() {
		log.Printf("ingestion: gRPC health on %s", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("ingestion: gRPC serve: %v", err)
		}
	}()

	// === HTTP ===
	rc := ingestion.RouterConfig{
		Pipeline: pipeline,
		Gatherer: reg,
		Checks:   checks,
		Logger:   logger,
	}
	if hub != nil {
		rc.Feed = hub
	}
	if cfg.InProcessStorage() {
		log.Printf("ingestion: in-process storage, serving the history API on %s", cfg.HTTP.Addr)
		rc.Routes = append(rc.Routes, history.Routes(history.RouterConfig{
			Engine:      history.NewEngine(stores.Readings),
			Alerts:      alerting.NewService(stores.Alerts),
			Metrics:     history.NewMetrics(reg),
			MaxPageSize: cfg.HTTP.MaxPageSize,
			Logger:      logger,
		}))
	}
	hsrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           ingestion.NewRouter(rc),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	go func() {
		log.Printf("ingestion: HTTP listening on %s", cfg.HTTP.Addr)
		if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ingestion: http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("ingestion: shutting down...")

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	_ = hsrv.Shutdown(shCtx)
	grpcServer.GracefulStop()
}
