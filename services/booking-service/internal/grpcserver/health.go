package grpcserver

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name the booking service reports under in addition to
// the overall ("") status.
const ServiceName = "barberbook.booking"

// Health publishes grpc.health.v1 status driven by a probe of the slot backend.
type Health struct {
	srv    *health.Server
	probe  func(context.Context) error
	logger *slog.Logger
	every  time.Duration
	last   healthpb.HealthCheckResponse_ServingStatus
}

func NewHealth(probe func(context.Context) error, logger *slog.Logger, every time.Duration) *Health {
	if every <= 0 {
		every = 10 * time.Second
	}
	return &Health{
		srv:    health.NewServer(),
		probe:  probe,
		logger: logger,
		every:  every,
		last:   healthpb.HealthCheckResponse_UNKNOWN,
	}
}

func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Refresh probes once and updates the published status.
func (h *Health) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.probe(probeCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		if h.last != status {
			h.logger.Warn("slot backend unhealthy", "err", err)
		}
	} else if h.last != status {
		h.logger.Info("slot backend healthy")
	}
	h.last = status
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(ServiceName, status)
	return status
}

// Run refreshes on an interval until ctx is done, then marks everything
// NOT_SERVING so clients drain.
func (h *Health) Run(ctx context.Context) {
	h.Refresh(ctx)
	ticker := time.NewTicker(h.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}
