// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/cap-onboarding/proxy"
	"github.com/hashicorp/go-hclog"
	"github.com/rs/cors"
)

const (
	HealthPath = "/health"
	InfoPath   = "/api/info"

	APIName        = "Week1 API"
	APIVersion     = "1.0.0"
	APIDescription = "Full-stack application API for Week1"
	HelloMessage   = "Hello World from Week1 API!"
)

// timestampFormat matches javascript's Date.toISOString
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
)

// HealthResponse is the body of GET HealthPath
type HealthResponse struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

// HelloResponse is the body of GET /
type HelloResponse struct {
	Message   string `json:"message"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// InfoResponse is the body of GET InfoPath
type InfoResponse struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}

// Server is the backend's http.Handler
type Server struct {
	handler     http.Handler
	logger      hclog.Logger
	environment string
	started     time.Time
	now         func() time.Time
	grace       time.Duration
}

// New creates a Server for the proxy.
//
// Supported options: WithLogger, WithEnvironment, WithAllowedOrigins,
// WithNow, WithShutdownGrace
func New(p *proxy.Proxy, opt ...Option) (*Server, error) {
	const op = "server.New"
	if p == nil {
		return nil, fmt.Errorf("%s: proxy is nil: %w", op, ErrNilParameter)
	}
	opts := getServerOpts(opt...)
	s := &Server{
		logger:      opts.withLogger,
		environment: opts.withEnvironment,
		now:         opts.withNow,
		grace:       opts.withShutdownGrace,
	}
	s.started = s.now()

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+HealthPath, s.health)
	mux.HandleFunc("GET /{$}", s.hello)
	mux.HandleFunc("GET "+InfoPath, s.info)
	mux.Handle(proxy.TokenPath, proxy.TokenHandler(p))
	mux.Handle(proxy.UserInfoPath, proxy.UserInfoHandler(p))

	c := cors.New(cors.Options{
		AllowedOrigins: opts.withAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead},
		AllowedHeaders: []string{"Authorization", "Content-Type", proxy.RequestIdHeader},
		ExposedHeaders: []string{proxy.RequestIdHeader},
	})
	s.handler = c.Handler(s.logRequests(mux))
	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Serve accepts connections on l until ctx is done, then shuts down
// gracefully.  It returns nil after a shutdown caused by ctx.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	const op = "server.(Server).Serve"
	if l == nil {
		return fmt.Errorf("%s: listener is nil: %w", op, ErrNilParameter)
	}
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          s.logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	s.logger.Info("server is running", "addr", l.Addr().String(), "environment", s.environment)

	select {
	case err := <-errCh:
		return fmt.Errorf("%s: %w", op, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", op, err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, &HealthResponse{
		Status:      "healthy",
		Timestamp:   now.UTC().Format(timestampFormat),
		Uptime:      now.Sub(s.started).Seconds(),
		Environment: s.environment,
	})
}

func (s *Server) hello(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &HelloResponse{
		Message:   HelloMessage,
		Version:   APIVersion,
		Timestamp: s.now().UTC().Format(timestampFormat),
	})
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &InfoResponse{
		Name:        APIName,
		Version:     APIVersion,
		Description: APIDescription,
		Endpoints: map[string]string{
			"health":   HealthPath,
			"hello":    "/",
			"info":     InfoPath,
			"token":    proxy.TokenPath,
			"userinfo": proxy.UserInfoPath,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
