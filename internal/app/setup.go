package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/parakeetchat/parakeet/db"
	"github.com/parakeetchat/parakeet/internal/api"
	"github.com/parakeetchat/parakeet/internal/auth"
	"github.com/parakeetchat/parakeet/internal/chat"
	"github.com/parakeetchat/parakeet/internal/config"
	"github.com/parakeetchat/parakeet/internal/handoff"
	"github.com/parakeetchat/parakeet/internal/session"
	"github.com/parakeetchat/parakeet/internal/sqlc"
	"github.com/parakeetchat/parakeet/internal/telemetry"
	"github.com/parakeetchat/parakeet/internal/tenant"
	"github.com/parakeetchat/parakeet/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	a := &App{Config: cfg}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	logger := slog.Default()

	a.otelCleanup = provideOtelShutdown(ctx)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	queries := sqlc.New(pool)
	a.Tenants = tenant.NewStore(queries, logger.With("component", "tenant"))
	a.Sessions = session.NewStore(queries, logger.With("component", "session"))
	a.Handoffs = handoff.NewService(queries, cfg.HomepageURL, logger.With("component", "handoff"))
	a.Events = telemetry.NewIngestor(queries, logger.With("component", "telemetry"))

	client := chat.NewGenkitClient(g)

	registry, err := tools.Register(tools.Config{
		Genkit:        g,
		Generate:      provideTextGenerator(client, cfg),
		SchedulingURL: cfg.SchedulingURL,
		Logger:        logger.With("component", "tools"),
	})
	if err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	a.Tools = registry

	orch, err := chat.New(chat.Config{
		Client:             client,
		Sessions:           a.Sessions,
		Handoffs:           a.Handoffs,
		Tools:              registry,
		Logger:             logger.With("component", "chat"),
		DefaultModel:       cfg.FullModelName(),
		FastModel:          cfg.FullFastModelName(),
		Qualify:            provideQualifier(cfg),
		DefaultTemperature: cfg.Temperature,
		DefaultMaxSteps:    cfg.MaxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat orchestrator: %w", err)
	}
	a.Orchestrator = orch

	server, err := api.NewServer(api.ServerConfig{
		Logger:         logger,
		Chat:           orch,
		Sessions:       a.Sessions,
		Tenants:        a.Tenants,
		Handoffs:       a.Handoffs,
		Events:         a.Events,
		Auth:           auth.NewDomainStrategy(a.Tenants, logger.With("component", "auth")),
		Pool:           pool,
		AdminAPIKey:    cfg.AdminAPIKey,
		DevMode:        cfg.DevMode,
		PublicAPIURL:   cfg.PublicAPIURL,
		PublicCDNURL:   cfg.PublicCDNURL,
		TrustProxy:     cfg.TrustProxy,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	a.Server = server

	return a, nil
}

// provideOtelShutdown wires an OTLP trace exporter into Genkit's tracer
// provider. Tracing is opt-in: without OTEL_EXPORTER_OTLP_ENDPOINT in the
// environment this is a no-op.
func provideOtelShutdown(ctx context.Context) func() {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		slog.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("OTLP tracing enabled", "endpoint", endpoint)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai providers.
// Call ordering in Setup ensures tracing is set up first.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		if cfg.FastModelName != "" && cfg.FastModelName != cfg.ModelName {
			ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
				Name: cfg.FastModelName,
				Type: "chat",
			}, nil)
		}
		slog.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		slog.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		slog.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideTextGenerator adapts the chat client into the one-shot generator
// the quick-win tool consumes.
func provideTextGenerator(client *chat.GenkitClient, cfg *config.Config) tools.TextGenerator {
	return func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		resp, err := client.Generate(ctx, chat.GenerateParams{
			Model:    cfg.FullModelName(),
			System:   systemPrompt,
			Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart(userPrompt))},
		}, nil)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
}

// provideQualifier turns unqualified per-tenant model overrides into
// provider-qualified names using the gateway's configured provider.
func provideQualifier(cfg *config.Config) func(string) string {
	return func(name string) string {
		return cfg.QualifyModel(name)
	}
}
