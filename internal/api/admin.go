package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/tenant"
)

// TenantStore manages tenant records. Satisfied by *tenant.Store.
type TenantStore interface {
	Get(ctx context.Context, id string) (*tenant.Tenant, error)
	Create(ctx context.Context, params tenant.CreateParams) (*tenant.Tenant, error)
	List(ctx context.Context) ([]*tenant.Tenant, error)
	Update(ctx context.Context, id string, params tenant.UpdateParams) (*tenant.Tenant, error)
	Deactivate(ctx context.Context, id string) error
}

// adminHandler serves the operator-facing tenant CRUD under /admin/v1.
type adminHandler struct {
	tenants      TenantStore
	publicAPIURL string
	publicCDNURL string
	logger       log.Logger
}

// adminAuthMiddleware guards the admin surface with a static X-Admin-Key.
// Fail-closed: without a configured key every admin request is rejected,
// unless the gateway runs in dev mode.
func adminAuthMiddleware(apiKey string, devMode bool, logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				if devMode {
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusForbidden, "Admin API disabled")
				return
			}

			provided := r.Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				logger.Warn("admin authentication failed", "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "Invalid admin key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tenantView is the admin-facing JSON shape of a tenant record.
type tenantView struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	AllowedDomains []string            `json:"allowedDomains"`
	Active         bool                `json:"active"`
	AgentConfig    *tenant.AgentConfig `json:"agentConfig,omitempty"`
	UIConfig       *tenant.UIConfig    `json:"uiConfig,omitempty"`
	CreatedAt      string              `json:"createdAt"`
	UpdatedAt      string              `json:"updatedAt"`
}

func toTenantView(t *tenant.Tenant) tenantView {
	return tenantView{
		ID:             t.ID,
		Name:           t.Name,
		AllowedDomains: t.AllowedDomains,
		Active:         t.Active,
		AgentConfig:    t.AgentConfig,
		UIConfig:       t.UIConfig,
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type createTenantRequest struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	AllowedDomains []string            `json:"allowedDomains"`
	AgentConfig    *tenant.AgentConfig `json:"agentConfig,omitempty"`
	UIConfig       *tenant.UIConfig    `json:"uiConfig,omitempty"`
}

func (h *adminHandler) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	t, err := h.tenants.Create(r.Context(), tenant.CreateParams{
		ID:             req.ID,
		Name:           req.Name,
		AllowedDomains: req.AllowedDomains,
		AgentConfig:    req.AgentConfig,
		UIConfig:       req.UIConfig,
	})
	if err != nil {
		if errors.Is(err, tenant.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "Tenant already exists")
			return
		}
		h.logger.Error("creating tenant", "tenant_id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create tenant")
		return
	}

	writeJSON(w, http.StatusCreated, toTenantView(t))
}

func (h *adminHandler) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		h.logger.Error("listing tenants", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list tenants")
		return
	}

	views := make([]tenantView, 0, len(tenants))
	for _, t := range tenants {
		views = append(views, toTenantView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": views})
}

func (h *adminHandler) getTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		h.logger.Error("getting tenant", "tenant_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get tenant")
		return
	}
	writeJSON(w, http.StatusOK, toTenantView(t))
}

type updateTenantRequest struct {
	Name           string              `json:"name"`
	AllowedDomains []string            `json:"allowedDomains"`
	Active         bool                `json:"active"`
	AgentConfig    *tenant.AgentConfig `json:"agentConfig,omitempty"`
	UIConfig       *tenant.UIConfig    `json:"uiConfig,omitempty"`
}

func (h *adminHandler) updateTenant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateTenantRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	t, err := h.tenants.Update(r.Context(), id, tenant.UpdateParams{
		Name:           req.Name,
		AllowedDomains: req.AllowedDomains,
		Active:         req.Active,
		AgentConfig:    req.AgentConfig,
		UIConfig:       req.UIConfig,
	})
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		h.logger.Error("updating tenant", "tenant_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update tenant")
		return
	}
	writeJSON(w, http.StatusOK, toTenantView(t))
}

func (h *adminHandler) deactivateTenant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.tenants.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		h.logger.Error("deactivating tenant", "tenant_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to deactivate tenant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// embedSnippet returns the copy-paste script tag that installs the widget on
// a tenant's site.
func (h *adminHandler) embedSnippet(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		h.logger.Error("getting tenant for embed", "tenant_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get tenant")
		return
	}

	snippet := fmt.Sprintf(
		`<script src=%q data-tenant-id=%q data-api-url=%q async></script>`,
		strings.TrimRight(h.publicCDNURL, "/")+"/widget.js",
		t.ID,
		strings.TrimRight(h.publicAPIURL, "/"),
	)

	writeJSON(w, http.StatusOK, map[string]string{
		"tenantId": t.ID,
		"snippet":  snippet,
	})
}
