// Package grpcapi runs the gRPC server that carries the standard health
// service for the teleprompter daemon.
package grpcapi

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"ai-teleprompter-service/internal/observability"
	"ai-teleprompter-service/internal/observability/logging"
	"ai-teleprompter-service/internal/observability/metrics"
)

// SessionService is the health service name that reports whether the
// session loop is running.
const SessionService = "ai.teleprompter.Session"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	addr   string
	logger zerolog.Logger
}

// New builds the server with logging and stream interceptors, the health
// service and reflection. The session service starts NOT_SERVING.
func New(addr string, m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor()),
		grpc.StreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(SessionService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	return &Server{
		grpc:   g,
		health: hs,
		addr:   addr,
		logger: logging.WithComponent("grpc"),
	}
}

// SetSessionServing flips the session service status.
func (s *Server) SetSessionServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(SessionService, st)
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server started")
		if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error().Err(err).Msg("gRPC serve failed")
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down gRPC server")
	s.health.Shutdown()
	s.grpc.GracefulStop()
	return nil
}
