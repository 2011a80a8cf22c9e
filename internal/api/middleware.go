package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parakeetchat/parakeet/internal/auth"
	"github.com/parakeetchat/parakeet/internal/session"
	"github.com/parakeetchat/parakeet/internal/tenant"
)

// Context key types (unexported to prevent collisions).
type tenantCtxKey struct{}
type sessionIDCtxKey struct{}
type requestIDCtxKey struct{}

var ctxKeyTenant = tenantCtxKey{}
var ctxKeySessionID = sessionIDCtxKey{}
var ctxKeyRequestID = requestIDCtxKey{}

// tenantFromContext retrieves the authenticated tenant from the request
// context. Returns nil and false outside the protected route group.
func tenantFromContext(ctx context.Context) (*tenant.Tenant, bool) {
	t, ok := ctx.Value(ctxKeyTenant).(*tenant.Tenant)
	return t, ok
}

// sessionIDFromContext retrieves the resolved widget session ID from the
// request context.
func sessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKeySessionID).(uuid.UUID)
	return id, ok
}

// loggingWriter wraps http.ResponseWriter to capture metrics.
// Implements Flusher for SSE streaming and Unwrap for ResponseController.
type loggingWriter struct {
	w            http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lw *loggingWriter) Header() http.Header {
	return lw.w.Header()
}

func (lw *loggingWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.w.WriteHeader(code)
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if lw.statusCode == 0 {
		lw.statusCode = http.StatusOK
	}
	n, err := lw.w.Write(b)
	lw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher for SSE streaming support.
func (lw *loggingWriter) Flush() {
	if f, ok := lw.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (lw *loggingWriter) Unwrap() http.ResponseWriter {
	return lw.w
}

// recoveryMiddleware recovers from panics to prevent server crashes.
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapper := &loggingWriter{w: w}

			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"headers_sent", wrapper.statusCode != 0,
					)

					if wrapper.statusCode == 0 {
						writeError(w, http.StatusInternalServerError, "Internal server error")
					} else {
						logger.Warn("cannot send error response, headers already sent",
							"path", r.URL.Path,
							"status", wrapper.statusCode,
						)
					}
				}
			}()
			next.ServeHTTP(wrapper, r)
		})
	}
}

// requestIDMiddleware assigns each request a UUID, exposes it as the
// X-Request-ID response header, and stores it in the request context.
// An inbound X-Request-ID from a trusted proxy is reused.
func requestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || uuid.Validate(id) != nil {
				id = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", id)
			ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loggingMiddleware logs request details including latency, status, and
// response size. Reuses an existing *loggingWriter from outer middleware
// (recoveryMiddleware) to avoid double-wrapping the ResponseWriter.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapper, ok := w.(*loggingWriter)
			if !ok {
				wrapper = &loggingWriter{w: w}
			}

			next.ServeHTTP(wrapper, r)

			status := wrapper.statusCode
			if status == 0 {
				status = http.StatusOK
			}

			requestID, _ := r.Context().Value(ctxKeyRequestID).(string)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", wrapper.bytesWritten,
				"duration", time.Since(start),
				"ip", r.RemoteAddr,
				"request_id", requestID,
			)
		})
	}
}

// tenantAuthMiddleware authenticates the calling widget: the X-Tenant-Id
// header names the tenant and the browser Origin (or Referer) must be on
// that tenant's domain allow-list. The full tenant record is placed in the
// request context for handlers.
func tenantAuthMiddleware(strategy auth.Strategy, tenants TenantStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := r.Header.Get("X-Tenant-Id")
			if tenantID == "" {
				writeError(w, http.StatusBadRequest, "Missing X-Tenant-Id header")
				return
			}

			result, err := strategy.Validate(r.Context(), r, tenantID)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrMissingOrigin):
					writeError(w, http.StatusBadRequest, "Missing Origin or Referer header")
				case errors.Is(err, auth.ErrTenantNotFound):
					writeError(w, http.StatusForbidden, "Tenant not found")
				case errors.Is(err, auth.ErrDomainNotAllowed):
					writeError(w, http.StatusForbidden, "Domain not authorized for this tenant")
				default:
					logger.Error("tenant authentication failed",
						"tenant_id", tenantID,
						"error", err,
					)
					writeError(w, http.StatusInternalServerError, "Authentication failed")
				}
				return
			}

			t, err := tenants.Get(r.Context(), result.TenantID)
			if err != nil {
				logger.Error("loading authenticated tenant",
					"tenant_id", result.TenantID,
					"error", err,
				)
				writeError(w, http.StatusInternalServerError, "Authentication failed")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyTenant, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionMiddleware resolves the widget session identity from X-Session-Id:
// a valid UUID is kept, an absent header mints a fresh one, and a malformed
// value is rejected. The resolved ID is always echoed back on the response
// so the widget can persist it.
func sessionMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _, err := session.ResolveID(r.Header.Get("X-Session-Id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid session ID format")
				return
			}

			w.Header().Set("X-Session-Id", id.String())
			ctx := context.WithValue(r.Context(), ctxKeySessionID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
