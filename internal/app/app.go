// Package app provides application initialization and dependency wiring.
//
// App is the container that assembles the gateway: database pool, Genkit,
// stores, the tool registry, the chat orchestrator, and the HTTP server.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parakeetchat/parakeet/internal/api"
	"github.com/parakeetchat/parakeet/internal/chat"
	"github.com/parakeetchat/parakeet/internal/config"
	"github.com/parakeetchat/parakeet/internal/handoff"
	"github.com/parakeetchat/parakeet/internal/session"
	"github.com/parakeetchat/parakeet/internal/telemetry"
	"github.com/parakeetchat/parakeet/internal/tenant"
	"github.com/parakeetchat/parakeet/internal/tools"
)

// App is the core application container.
type App struct {
	Config *config.Config

	Genkit *genkit.Genkit
	Pool   *pgxpool.Pool

	Tenants  *tenant.Store
	Sessions *session.Store
	Handoffs *handoff.Service
	Events   *telemetry.Ingestor
	Tools    *tools.Registry

	Orchestrator *chat.Orchestrator
	Server       *api.Server

	otelCleanup func()
}

// Close gracefully releases all resources.
func (a *App) Close() error {
	slog.Info("shutting down application")

	if a.Pool != nil {
		a.Pool.Close()
		slog.Info("database pool closed")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
