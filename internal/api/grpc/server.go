// Package grpcapi exposes the service's gRPC health and reflection
// endpoints for orchestration probes and grpcurl.
package grpcapi

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"meeting-summary-service/internal/observability"
	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/observability/metrics"
)

// ServiceName is the health service key for the summary pipeline.
const ServiceName = "meeting.summary.Pipeline"

// Server wraps a grpc.Server with health reporting.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New creates a gRPC server with metrics interceptors, health and reflection.
func New(m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.StreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)
	reflection.Register(g)

	s := &Server{grpc: g, health: hs}
	s.SetServing(true)
	return s
}

// SetServing updates the health status of both the server and the pipeline service.
func (s *Server) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if !serving {
		st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve blocks serving lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	logger := logging.WithComponent("grpc")
	logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server started")
	return s.grpc.Serve(lis)
}

// Stop marks the server not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.SetServing(false)
	s.grpc.GracefulStop()
}
