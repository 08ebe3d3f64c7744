package adaptor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService is the name under which the room service reports in grpc.health.v1.
const HealthService = "bingo.Rooms"

// NewGRPCServer exposes grpc.health.v1 and reflection.
func NewGRPCServer(hs *health.Server) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s
}

// WatchHealth mirrors the gateway status into hs until ctx is done.
func WatchHealth(ctx context.Context, gateway Gateway, hs *health.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		serving := healthpb.HealthCheckResponse_SERVING
		if gateway.Status(ctx).Status != "ok" {
			serving = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if serving != last {
			log.Info().Str("service", HealthService).Str("status", serving.String()).Msg("health changed")
			hs.SetServingStatus(HealthService, serving)
			last = serving
		}

		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}
