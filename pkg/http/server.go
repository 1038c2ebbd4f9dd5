package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/socialgouv/companion-launcher/pkg/logger"
	"github.com/socialgouv/companion-launcher/pkg/supervisor"
)

// StatusProvider reports the supervisor's current status
type StatusProvider interface {
	Status() supervisor.Status
}

// Server is the HTTP server exposing launcher health, companion status and metrics.
// It reports what the launcher knows and never contacts the companion.
type Server struct {
	mu       sync.Mutex
	server   *http.Server
	status   StatusProvider
	gatherer prometheus.Gatherer
	logger   logger.Logger
}

// NewServer creates a new status server. A nil gatherer disables /metrics.
func NewServer(status StatusProvider, gatherer prometheus.Gatherer, log logger.Logger) *Server {
	return &Server{
		status:   status,
		gatherer: gatherer,
		logger:   logger.WithComponent(log, "http"),
	}
}

// Handler returns the HTTP handler serving all endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/status", s.statusHandler)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start listens on address and serves until Stop is called
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener until Stop is called
func (s *Server) Serve(listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	s.logger.Infof("Starting HTTP status server on %s", listener.Addr())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server != nil {
		s.logger.Info("Stopping HTTP status server")
		return server.Shutdown(ctx)
	}
	return nil
}

// healthzHandler reports that the launcher itself is alive
func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// statusHandler returns the supervisor status snapshot
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(s.logger, err).Debug("Failed to write response")
	}
}
