// Package grpchealth exposes the orchestrator's liveness over gRPC using
// the standard health/v1 service instead of a bespoke proto contract: the
// teacher's grpc.GrpcServer (internal/core/services/grpc/grpc_server.go)
// wraps a domain-specific streaming RPC generated from its own
// api/proto/wmap.proto, which has no analogue here — there is nothing for
// an orchestrator to stream traffic reports over. Reusing grpc's built-in
// health.Server keeps the same "serve a grpc.Server over a TCP listener,
// GracefulStop on ctx.Done()" shape without fabricating unused message
// types.
package grpchealth

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server wraps a grpc.Server registered with the standard health service.
type Server struct {
	addr    string
	logger  *slog.Logger
	grpc    *grpc.Server
	health  *health.Server
}

// New builds a health Server bound to addr (e.g. ":9090").
func New(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	return &Server{addr: addr, logger: logger, grpc: grpcSrv, health: healthSrv}
}

// SetServing updates the reported status for the orchestrator's overall
// service name (empty string), used by clients that probe aggregate health.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.grpc.GracefulStop()
	}()

	s.logger.Info("grpchealth: listening", "addr", s.addr)
	return s.grpc.Serve(lis)
}
