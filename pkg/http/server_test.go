package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialgouv/companion-launcher/pkg/logger"
	"github.com/socialgouv/companion-launcher/pkg/supervisor"
)

type staticStatus supervisor.Status

func (s staticStatus) Status() supervisor.Status {
	return supervisor.Status(s)
}

func newTestServer(t *testing.T, status supervisor.Status) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	supervisor.NewMetrics(reg)
	return NewServer(staticStatus(status), reg, logger.NewNopLogger()), reg
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, supervisor.Status{State: "not-started"})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, supervisor.Status{
		State:     "running",
		PID:       4242,
		LaunchID:  "launch-1",
		EntryPath: "/opt/x/server.js",
		WorkDir:   "/opt/x",
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body["state"])
	assert.Equal(t, float64(4242), body["pid"])
	assert.Equal(t, "launch-1", body["launchId"])
	assert.Equal(t, "/opt/x/server.js", body["entryPath"])
	assert.Equal(t, false, body["exited"])
	assert.NotContains(t, body, "startedAt")
}

func TestStatusRejectsPost(t *testing.T) {
	s, _ := newTestServer(t, supervisor.Status{State: "running"})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, supervisor.Status{State: "not-started"})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "launcher_companion_state")
}

func TestMetricsDisabled(t *testing.T) {
	s := NewServer(staticStatus{State: "running"}, nil, logger.NewNopLogger())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeAndStop(t *testing.T) {
	s, _ := newTestServer(t, supervisor.Status{State: "running"})
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(listener)
	}()

	url := "http://" + listener.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, <-errCh)
}
