// Package server provides the public entry point for initializing the
// DataPeek server: it wires config, telemetry, the session cache, the
// summarizer, and the HTTP router into a ready-to-serve handler.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/datapeek/datapeek/internal/api"
	"github.com/datapeek/datapeek/internal/api/handlers"
	"github.com/datapeek/datapeek/internal/config"
	"github.com/datapeek/datapeek/internal/sessions"
	"github.com/datapeek/datapeek/internal/summarizer"
	"github.com/datapeek/datapeek/internal/telemetry"
)

// Server holds the initialized DataPeek service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Cache is the in-memory session cache behind the chart-data endpoint.
	Cache *sessions.Cache

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration and
// returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	cache := sessions.NewCache(cfg.SessionTTL)
	log.Info().Dur("ttl", cfg.SessionTTL).Msg("session cache initialized")

	client := summarizer.NewClient(cfg.Summarizer.APIKey, cfg.Summarizer.Model,
		summarizer.WithBaseURL(cfg.Summarizer.BaseURL),
		summarizer.WithTimeout(cfg.Summarizer.Timeout),
	)
	orch := summarizer.NewOrchestrator(client)
	log.Info().Str("model", cfg.Summarizer.Model).Msg("summarizer initialized")

	h := handlers.New(cache, orch, cfg.Version, cfg.MaxUploadBytes)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Cache:        cache,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
