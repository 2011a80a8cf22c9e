// Package api provides the HTTP surface of the Parakeet gateway.
//
// # Architecture
//
// The server uses Go 1.22+ routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Routes
//
// Widget routes additionally pass tenant authentication and session
// resolution. Health probes (/health, /ready) bypass the middleware stack
// via a top-level mux, ensuring they remain fast and unauthenticated.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /health — liveness, returns {"status":"healthy"}
//   - GET /ready  — readiness, pings the database when a pool is configured
//
// Widget routes (tenant auth + session resolution):
//   - POST   /api/v1/chat                      — run one chat turn, SSE response
//   - GET    /api/v1/chat/history              — caller's session transcript
//   - GET    /api/v1/chat/history/{sessionId}  — explicit session transcript
//   - GET    /api/v1/tenants/{id}/config       — widget boot configuration
//   - POST   /api/v1/events                    — telemetry batch ingest
//   - POST   /api/v1/handoffs                  — issue a share token
//   - GET    /api/v1/handoffs                  — list share tokens
//   - DELETE /api/v1/handoffs/{id}             — deactivate a share token
//
// Public (no tenant header):
//   - GET /api/v1/handoffs/validate/{token} — share-link token check
//
// Admin (X-Admin-Key, fail-closed without a configured key):
//   - POST   /admin/v1/tenants            — register tenant (409 on duplicate)
//   - GET    /admin/v1/tenants            — list tenants
//   - GET    /admin/v1/tenants/{id}       — get tenant
//   - PUT    /admin/v1/tenants/{id}       — replace mutable fields
//   - DELETE /admin/v1/tenants/{id}       — soft-deactivate
//   - GET    /admin/v1/tenants/{id}/embed — install snippet
//
// # Tenant Authentication
//
// Every widget route requires an X-Tenant-Id header and a browser Origin
// (or Referer) whose hostname is on that tenant's domain allow-list. CORS
// reflects any origin; the allow-list is the actual access control, which
// is what makes the widget embeddable on arbitrary tenant sites.
//
// # Session Identity
//
// X-Session-Id carries the widget's client-side session UUID. A missing
// header mints a fresh ID, a malformed one is rejected with 400, and the
// resolved ID is echoed back on every protected response so the widget can
// persist it.
//
// # Error Handling
//
// Error bodies are uniformly {"error": "message"}. Chat turn failures after
// the SSE stream has started are delivered as an in-stream error frame
// instead, since the 200 status is already committed.
package api
