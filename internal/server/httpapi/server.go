// Package httpapi is the HTTP transport of the auth server: a chi router
// over the auth and user services, with bearer authentication, role checks,
// attempt limiting, request logging and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address string
	logger  logging.Logger
	auth    *services.AuthService
	users   *services.UserService
	tokens  *auth.TokenManager
	metrics *metrics.Metrics

	limiter       AttemptLimiter
	attemptLimit  int
	attemptWindow time.Duration
}

type Option func(*HTTPServer)

// WithMetrics records request and auth metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *HTTPServer) { s.metrics = m }
}

// WithAttemptLimit caps login and verification attempts per client IP.
func WithAttemptLimit(l AttemptLimiter, limit int, window time.Duration) Option {
	return func(s *HTTPServer) {
		s.limiter = l
		s.attemptLimit = limit
		s.attemptWindow = window
	}
}

func NewHTTPServer(address string, l logging.Logger, as *services.AuthService, us *services.UserService, tm *auth.TokenManager, opts ...Option) *HTTPServer {
	s := &HTTPServer{
		address: address,
		logger:  l.With("module", "http_server"),
		auth:    as,
		users:   us,
		tokens:  tm,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully. It returns
// only after in-flight requests have finished or the shutdown timeout hit.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	shutdownDone := make(chan struct{})

	go func() {
		defer close(shutdownDone)
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	err = srv.Serve(listen)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		close(stopped)
		<-shutdownDone
		return err
	}

	// Serve returns as soon as Shutdown starts; wait for it to drain.
	<-shutdownDone
	return nil
}
