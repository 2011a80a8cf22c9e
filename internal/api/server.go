package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"

	"github.com/parakeetchat/parakeet/internal/auth"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger   *slog.Logger
	Chat     TurnRunner     // Required
	Sessions HistoryStore   // Required
	Tenants  TenantStore    // Required
	Handoffs HandoffService // Required
	Events   EventIngestor  // Required
	Auth     auth.Strategy  // Required
	Pool     *pgxpool.Pool  // Optional: nil disables db ping in /ready

	AdminAPIKey  string // Admin surface key; empty disables /admin/v1 unless DevMode
	DevMode      bool
	PublicAPIURL string // Base URL for the embed snippet's data-api-url
	PublicCDNURL string // Base URL the widget bundle is served from

	TrustProxy     bool // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateLimitRPS   int  // Tokens per second per IP (0 = default 10)
	RateLimitBurst int  // Burst size per IP (0 = default 60)
}

// Server is the JSON/SSE gateway HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	switch {
	case cfg.Chat == nil:
		return nil, errors.New("chat runner is required")
	case cfg.Sessions == nil:
		return nil, errors.New("session store is required")
	case cfg.Tenants == nil:
		return nil, errors.New("tenant store is required")
	case cfg.Handoffs == nil:
		return nil, errors.New("handoff service is required")
	case cfg.Events == nil:
		return nil, errors.New("event ingestor is required")
	case cfg.Auth == nil:
		return nil, errors.New("auth strategy is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{runner: cfg.Chat, sessions: cfg.Sessions, logger: logger}
	hh := &handoffHandler{service: cfg.Handoffs, logger: logger}
	eh := &eventsHandler{ingestor: cfg.Events, logger: logger}
	th := &tenantHandler{logger: logger}
	ah := &adminHandler{
		tenants:      cfg.Tenants,
		publicAPIURL: cfg.PublicAPIURL,
		publicCDNURL: cfg.PublicCDNURL,
		logger:       logger,
	}

	// Widget routes: tenant auth + session resolution apply to all of them.
	widget := http.NewServeMux()
	widget.HandleFunc("POST /api/v1/chat", ch.stream)
	widget.HandleFunc("GET /api/v1/chat/history", ch.history)
	widget.HandleFunc("GET /api/v1/chat/history/{sessionId}", ch.history)
	widget.HandleFunc("GET /api/v1/tenants/{id}/config", th.config)
	widget.HandleFunc("POST /api/v1/events", eh.ingest)
	widget.HandleFunc("POST /api/v1/handoffs", hh.create)
	widget.HandleFunc("GET /api/v1/handoffs", hh.list)
	widget.HandleFunc("DELETE /api/v1/handoffs/{id}", hh.deactivate)

	var protected http.Handler = widget
	protected = sessionMiddleware()(protected)
	protected = tenantAuthMiddleware(cfg.Auth, cfg.Tenants, logger)(protected)

	// Admin routes: static key auth, no tenant/session semantics.
	admin := http.NewServeMux()
	admin.HandleFunc("POST /admin/v1/tenants", ah.createTenant)
	admin.HandleFunc("GET /admin/v1/tenants", ah.listTenants)
	admin.HandleFunc("GET /admin/v1/tenants/{id}", ah.getTenant)
	admin.HandleFunc("PUT /admin/v1/tenants/{id}", ah.updateTenant)
	admin.HandleFunc("DELETE /admin/v1/tenants/{id}", ah.deactivateTenant)
	admin.HandleFunc("GET /admin/v1/tenants/{id}/embed", ah.embedSnippet)

	routes := http.NewServeMux()
	routes.Handle("/api/v1/", protected)
	// The share-link page calls this before any tenant context exists, so it
	// sits outside the protected group. The more specific pattern wins.
	routes.HandleFunc("GET /api/v1/handoffs/validate/{token}", hh.validate)
	routes.Handle("/admin/v1/", adminAuthMiddleware(cfg.AdminAPIKey, cfg.DevMode, logger)(admin))

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(float64(rps), burst)

	// The widget is embedded on arbitrary tenant sites, so CORS reflects any
	// origin; access control is the tenant domain allow-list, not CORS.
	c := cors.New(cors.Options{
		AllowOriginFunc: func(string) bool { return true },
		AllowedMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:  []string{"Content-Type", "X-Tenant-Id", "X-Session-Id", "X-Admin-Key"},
		ExposedHeaders:  []string{"X-Session-Id", "X-Request-ID"},
		MaxAge:          3600,
	})

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = routes
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = c.Handler(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Use a top-level mux to separate health probes from the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
