package ingestion

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/soilwatch/internal/httpx"
)

// ServiceName is the gRPC health service name reported for the intake.
const ServiceName = "soilwatch.Ingestion"

// ReportHealth mirrors the readiness checks into the gRPC health server every
// interval until ctx is done, then marks everything NOT_SERVING.
func ReportHealth(ctx context.Context, hs *health.Server, interval time.Duration, checks []httpx.Check) {
	set := func() {
		st := healthpb.HealthCheckResponse_NOT_SERVING
		if httpx.Ready(ctx, checks) {
			st = healthpb.HealthCheckResponse_SERVING
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(ServiceName, st)
	}
	set()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			set()
		}
	}
}
