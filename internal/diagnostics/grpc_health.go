package diagnostics

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
)

// GRPCHealth exposes the standard grpc.health.v1 service. The named service and
// the empty (server-wide) one follow the connection state of the last cycle.
type GRPCHealth struct {
	srv     *grpc.Server
	hs      *health.Server
	service string
}

func NewGRPCHealth(service string) *GRPCHealth {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	g := &GRPCHealth{srv: srv, hs: hs, service: service}
	g.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return g
}

func (g *GRPCHealth) set(st healthpb.HealthCheckResponse_ServingStatus) {
	g.hs.SetServingStatus("", st)
	if g.service != "" {
		g.hs.SetServingStatus(g.service, st)
	}
}

func (g *GRPCHealth) CycleCompleted(_ entities.Snapshot, state entities.ConnectionState) {
	if state == entities.Ready {
		g.set(healthpb.HealthCheckResponse_SERVING)
		return
	}
	g.set(healthpb.HealthCheckResponse_NOT_SERVING)
}

// Check interroga il servizio in-process, senza passare dalla rete.
func (g *GRPCHealth) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := g.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve blocca finché il listener è chiuso o Stop viene chiamato.
func (g *GRPCHealth) Serve(lis net.Listener) error {
	return g.srv.Serve(lis)
}

func (g *GRPCHealth) Stop() {
	g.hs.Shutdown()
	g.srv.GracefulStop()
}
