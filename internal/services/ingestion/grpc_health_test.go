package ingestion_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/soilwatch/internal/httpx"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/ingestion"
)

func TestReportHealthFollowsChecks(t *testing.T) {
	var down atomic.Bool
	checks := []httpx.Check{{Name: "db", Probe: func(context.Context) error {
		if down.Load() {
			return errors.New("down")
		}
		return nil
	}}}

	hs := health.NewServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ingestion.ReportHealth(ctx, hs, 10*time.Millisecond, checks)

	status := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ingestion.ServiceName})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}

	require.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_SERVING }, time.Second, 5*time.Millisecond)
	down.Store(true)
	require.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_NOT_SERVING }, time.Second, 5*time.Millisecond)
}
