package grpc

import (
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/socialgouv/companion-launcher/pkg/logger"
	"github.com/socialgouv/companion-launcher/pkg/supervisor"
)

// ServiceName is the health service name that tracks the companion process.
// The empty service name reports the launcher itself.
const ServiceName = "companion"

// HealthServer exposes the standard gRPC health service. The companion entry is
// SERVING while the supervisor holds a process handle; it is never probed.
type HealthServer struct {
	health *health.Server
	logger logger.Logger

	mu     sync.Mutex
	server *grpc.Server
}

// NewHealthServer creates a health server with the companion marked NOT_SERVING
func NewHealthServer(log logger.Logger) *HealthServer {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		health: h,
		logger: logger.WithComponent(log, "grpc"),
	}
}

// OnStateChange updates the companion serving status. It is meant to be
// registered with supervisor.WithStateChangeCallback.
func (s *HealthServer) OnStateChange(state supervisor.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == supervisor.StateRunning {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.logger.WithFields(map[string]interface{}{
		logger.FieldState:  state.String(),
		logger.FieldStatus: status.String(),
	}).Debug("Updated companion health status")
}

// Start starts the gRPC server on the specified address
func (s *HealthServer) Start(address string, tlsEnabled bool, certFile, keyFile string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	var opts []grpc.ServerOption
	if tlsEnabled {
		creds, err := loadTLSCredentials(certFile, keyFile)
		if err != nil {
			listener.Close()
			return fmt.Errorf("failed to load TLS credentials: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	s.logger.Infof("Starting gRPC health server on %s (TLS: %v)", address, tlsEnabled)
	return s.Serve(listener, opts...)
}

// Serve serves the health service on listener until Stop is called
func (s *HealthServer) Serve(listener net.Listener, opts ...grpc.ServerOption) error {
	opts = append(opts, grpc.UnaryInterceptor(logger.UnaryServerInterceptor(s.logger)))
	server := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(server, s.health)

	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	return server.Serve(listener)
}

// Stop marks every service NOT_SERVING and stops the gRPC server
func (s *HealthServer) Stop() {
	s.health.Shutdown()

	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server != nil {
		s.logger.Info("Stopping gRPC health server")
		server.GracefulStop()
	}
}
