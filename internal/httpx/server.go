package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Dispatcher routes a single Exchange to its resolved handler. The
// router package implements this; httpx only needs the interface to
// avoid depending on it.
type Dispatcher interface {
	Dispatch(*Exchange)
}

// Server is a net/http listener that builds one Exchange per request
// and hands it to a Dispatcher, grounded on the teacher's
// StandardHTTPServer (module/http_server.go) minus its TLS modes,
// which this repo has no use for.
type Server struct {
	address      string
	dispatcher   Dispatcher
	logger       *slog.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration

	server *http.Server
}

// NewServer creates a Server bound to address, dispatching every
// request to dispatcher.
func NewServer(address string, dispatcher Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:    address,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SetTimeouts configures read, write, and idle timeouts. Zero values
// use the defaults (30s read/write, 120s idle).
func (s *Server) SetTimeouts(read, write, idle time.Duration) {
	s.readTimeout = read
	s.writeTimeout = write
	s.idleTimeout = idle
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ex := New(w, r)
	s.dispatcher.Dispatch(ex)
	if !ex.Ended() {
		// A dispatcher that never calls End/SendFile is a programming
		// error in the router or a plugin; fail safe rather than hang
		// the client.
		ex.flushHeaders()
	}
}

// Start begins serving in the background and returns immediately.
func (s *Server) Start(ctx context.Context) error {
	if s.dispatcher == nil {
		return fmt.Errorf("httpx: no dispatcher configured")
	}

	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeoutOrDefault(s.readTimeout, 30*time.Second),
		WriteTimeout:      timeoutOrDefault(s.writeTimeout, 30*time.Second),
		IdleTimeout:       timeoutOrDefault(s.idleTimeout, 120*time.Second),
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	s.logger.Info("http server started", "address", s.address)
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func timeoutOrDefault(d, defaultVal time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return defaultVal
}

// MetricsServer is a plain net/http listener for a single handler,
// used to expose the Prometheus scrape endpoint (spec.md §6) on its
// own port rather than mixing it into the mock-serving listener —
// mirroring the teacher's separate admin-UI port alongside the
// workflow engine's own listen address.
type MetricsServer struct {
	address string
	handler http.Handler
	logger  *slog.Logger
	server  *http.Server
}

// NewMetricsServer creates a MetricsServer bound to address, serving handler.
func NewMetricsServer(address string, handler http.Handler, logger *slog.Logger) *MetricsServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsServer{address: address, handler: handler, logger: logger}
}

// Start begins serving in the background and returns immediately.
func (s *MetricsServer) Start(ctx context.Context) error {
	s.server = &http.Server{Addr: s.address, Handler: s.handler}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", "error", err)
		}
	}()
	s.logger.Info("metrics server started", "address", s.address)
	return nil
}

// Stop gracefully shuts down the server.
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}
	s.logger.Info("metrics server stopped")
	return nil
}
