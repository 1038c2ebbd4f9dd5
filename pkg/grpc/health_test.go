package grpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	pkgerrors "github.com/socialgouv/companion-launcher/pkg/errors"
	"github.com/socialgouv/companion-launcher/pkg/logger"
	"github.com/socialgouv/companion-launcher/pkg/supervisor"
)

func startHealthServer(t *testing.T) (*HealthServer, healthpb.HealthClient) {
	t.Helper()

	s := NewHealthServer(logger.NewNopLogger())
	listener := bufconn.Listen(1024 * 1024)
	go func() {
		_ = s.Serve(listener)
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return s, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsSupervisorState(t *testing.T) {
	s, client := startHealthServer(t)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ServiceName))

	s.OnStateChange(supervisor.StateStarting)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ServiceName))

	s.OnStateChange(supervisor.StateRunning)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ServiceName))

	s.OnStateChange(supervisor.StateStopped)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ServiceName))
}

func TestHealthUnknownService(t *testing.T) {
	_, client := startHealthServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})

	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealthWiredToSupervisor(t *testing.T) {
	s, client := startHealthServer(t)
	sup := supervisor.New(
		supervisor.WithSpawner(spawnerFunc(func() (supervisor.Handle, error) {
			return &stubHandle{done: make(chan struct{})}, nil
		})),
		supervisor.WithStateChangeCallback(s.OnStateChange),
	)

	require.NoError(t, sup.StartService(context.Background(), testLayout))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ServiceName))

	sup.StopService()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ServiceName))
}

func TestLoadTLSCredentialsMissingFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := loadTLSCredentials(filepath.Join(dir, "tls.crt"), filepath.Join(dir, "tls.key"))

	require.Error(t, err)
	assert.Equal(t, pkgerrors.ErrorCodeInvalidInput, pkgerrors.GetCode(err))
}

func TestStartWithBadTLS(t *testing.T) {
	s := NewHealthServer(logger.NewNopLogger())
	dir := t.TempDir()

	err := s.Start("127.0.0.1:0", true, filepath.Join(dir, "tls.crt"), filepath.Join(dir, "tls.key"))

	assert.Error(t, err)
}
