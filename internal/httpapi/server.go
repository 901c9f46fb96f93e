// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SameBoat Contributors

// Package httpapi exposes the auth service over HTTP: registration,
// login, logout and the profile endpoints, plus the session cookie
// plumbing and CORS.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/sameboatplatform/sameboat/internal/auth"
	"github.com/sameboatplatform/sameboat/internal/observability"
)

// Config carries the HTTP surface configuration.
type Config struct {
	Addr           string
	Cookies        CookieConfig
	SessionTTL     time.Duration
	PasswordPolicy auth.PasswordPolicy
	AllowedOrigins []string
}

// Server serves the auth API.
type Server struct {
	cfg        Config
	handler    http.Handler
	listener   net.Listener
	httpServer *http.Server
	logger     *slog.Logger
	running    atomic.Bool
}

// NewServer assembles the middleware chain and routes. metrics may be nil.
func NewServer(cfg Config, svc *auth.Service, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	handlers, err := NewHandlers(svc, cfg.Cookies, cfg.SessionTTL, cfg.PasswordPolicy, metrics, logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	handlers.Register(mux)

	var handler http.Handler = mux
	handler = SessionMiddleware(svc, logger)(handler)
	handler = countRequests(mux, metrics)(handler)
	handler = CORSMiddleware(cfg.AllowedOrigins)(handler)

	return &Server{cfg: cfg, handler: handler, logger: logger}, nil
}

// Handler returns the fully assembled handler chain. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving. It returns an error channel that receives any
// serve failure and is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("http server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_http_server").Wrap(err)
		}
	}
	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the bound listen address, or empty if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// countRequests records per-route request counts. The label is the mux
// pattern, not the raw path, so cardinality stays bounded.
func countRequests(mux *http.ServeMux, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, pattern := mux.Handler(r)
			if pattern == "" {
				pattern = "unmatched"
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			metrics.HTTPRequestsTotal.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
