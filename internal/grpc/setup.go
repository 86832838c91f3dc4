// Package grpc serves the standard gRPC health protocol so orchestrators can
// probe the relay without going through the HTTP API.
package grpc

import (
	"sync"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health check name reported for the relay
const ServiceName = "streamrelay.v1.StreamRelay"

var (
	grpcServerMetrics         *grpcprom.ServerMetrics
	registerServerMetricsOnce sync.Once
)

// Server is a gRPC server exposing health and reflection
type Server struct {
	*grpc.Server
	health *health.Server
}

// NewGRPCServer creates a gRPC server with Prometheus metrics, health
// checking, and reflection. Both the overall and the relay status start as
// SERVING.
func NewGRPCServer() *Server {
	// Set up Prometheus gRPC server metrics once per process
	registerServerMetricsOnce.Do(func() {
		grpcServerMetrics = grpcprom.NewServerMetrics(
			grpcprom.WithServerHandlingTimeHistogram(),
		)
		prometheus.MustRegister(grpcServerMetrics)
	})

	srvMetrics := grpcServerMetrics

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(srvMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(srvMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)
	srvMetrics.InitializeMetrics(grpcServer)

	s := &Server{Server: grpcServer, health: healthServer}
	s.SetServing(true)
	return s
}

// SetServing flips the reported status, e.g. to NOT_SERVING while draining
func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// GracefulStop reports NOT_SERVING, then stops accepting new RPCs and waits
// for pending ones
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.Server.GracefulStop()
}
