// Package api exposes the ledger service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/logging"
)

// Server provides the HTTP endpoints for the ledger.
type Server struct {
	service *ledger.Service
	logger  *logging.Logger
	server  *http.Server
	config  ServerConfig
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections
	IdleTimeout time.Duration

	// Registry for HTTP metrics and the /metrics endpoint. Nil disables both.
	Registry *prometheus.Registry
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new API server on top of the ledger service.
func NewServer(service *ledger.Service, logger *logging.Logger, config ServerConfig) (*Server, error) {
	if logger == nil {
		logger = logging.Global().Named("api")
	}

	s := &Server{
		service: service,
		logger:  logger,
		config:  config,
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(accessLogMiddleware(logger))

	if config.Registry != nil {
		hm, err := newHTTPMetrics(config.Registry)
		if err != nil {
			return nil, err
		}
		r.Use(hm.middleware())
		r.Handle("/metrics", promhttp.HandlerFor(config.Registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ledger/{owner}/income", s.handleIncome).Methods("POST")
	r.HandleFunc("/ledger/{owner}/expense", s.handleExpense).Methods("POST")
	r.HandleFunc("/ledger/{owner}/balance", s.handleBalance).Methods("GET")
	r.HandleFunc("/ledger/{owner}/history", s.handleHistory).Methods("GET")
	r.HandleFunc("/ledger/{owner}/summary", s.handleSummary).Methods("GET")
	r.HandleFunc("/ledger/{owner}/transactions/{id:[0-9]+}", s.handleDelete).Methods("DELETE")

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

// Handler returns the configured router, for use in tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	go func() {
		s.logger.Info("server listening", zap.String("address", s.config.Address))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
