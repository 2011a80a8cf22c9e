package api

import (
	"net/http"

	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/tenant"
)

type tenantHandler struct {
	logger log.Logger
}

// widgetConfig is the boot payload for the embedded widget: the tenant id
// plus the flattened UI settings.
type widgetConfig struct {
	TenantID string `json:"tenantId"`
	tenant.UIConfig
}

// config serves GET /api/v1/tenants/{id}/config. The path id must match the
// authenticated tenant; the widget cannot read another tenant's settings by
// changing the URL.
func (h *tenantHandler) config(w http.ResponseWriter, r *http.Request) {
	t, ok := tenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Tenant not resolved")
		return
	}

	if r.PathValue("id") != t.ID {
		writeError(w, http.StatusForbidden, "Unauthorized: tenant ID mismatch")
		return
	}

	cfg := widgetConfig{TenantID: t.ID}
	if t.UIConfig != nil {
		cfg.UIConfig = *t.UIConfig
	}
	writeJSON(w, http.StatusOK, cfg)
}
