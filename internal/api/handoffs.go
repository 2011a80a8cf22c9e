package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parakeetchat/parakeet/internal/handoff"
	"github.com/parakeetchat/parakeet/internal/log"
)

// HandoffService manages share tokens. Satisfied by *handoff.Service.
type HandoffService interface {
	Issue(ctx context.Context, tenantID string, params handoff.IssueParams) (*handoff.Issued, error)
	Validate(ctx context.Context, token string) (*handoff.Handoff, error)
	Deactivate(ctx context.Context, id uuid.UUID, tenantID string) error
	List(ctx context.Context, tenantID string) ([]*handoff.Handoff, error)
}

type handoffHandler struct {
	service HandoffService
	logger  log.Logger
}

type issueHandoffRequest struct {
	Context          string         `json:"context"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	ExpiresInSeconds int            `json:"expiresInSeconds,omitempty"`
	MaxUses          *int           `json:"maxUses,omitempty"`
}

// create issues a new share token for the calling tenant.
func (h *handoffHandler) create(w http.ResponseWriter, r *http.Request) {
	t, ok := tenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Tenant not resolved")
		return
	}

	var req issueHandoffRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	issued, err := h.service.Issue(r.Context(), t.ID, handoff.IssueParams{
		Context:   req.Context,
		Metadata:  req.Metadata,
		ExpiresIn: req.ExpiresInSeconds,
		MaxUses:   req.MaxUses,
	})
	if err != nil {
		switch {
		case errors.Is(err, handoff.ErrEmptyContext):
			writeError(w, http.StatusBadRequest, "context is required and must be a non-empty string")
		case errors.Is(err, handoff.ErrInvalidExpiry):
			writeError(w, http.StatusBadRequest, "expiresInSeconds must be between 60 and 2592000 seconds")
		case errors.Is(err, handoff.ErrInvalidMaxUses):
			writeError(w, http.StatusBadRequest, "maxUses must be at least 1")
		default:
			h.logger.Error("issuing handoff", "tenant_id", t.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create handoff")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         issued.ID.String(),
		"shareToken": issued.Token,
		"shareUrl":   issued.ShareURL,
		"expiresAt":  issued.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handoffItem is one entry of the list response.
type handoffItem struct {
	ID        string `json:"id"`
	Context   string `json:"context"`
	Active    bool   `json:"active"`
	ExpiresAt string `json:"expiresAt"`
	MaxUses   *int   `json:"maxUses,omitempty"`
	UsedCount int    `json:"usedCount"`
	CreatedAt string `json:"createdAt"`
}

// list returns the tenant's handoffs, newest first. Tokens are not echoed
// back; they are shown exactly once at issue time.
func (h *handoffHandler) list(w http.ResponseWriter, r *http.Request) {
	t, ok := tenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Tenant not resolved")
		return
	}

	handoffs, err := h.service.List(r.Context(), t.ID)
	if err != nil {
		h.logger.Error("listing handoffs", "tenant_id", t.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list handoffs")
		return
	}

	items := make([]handoffItem, 0, len(handoffs))
	for _, hd := range handoffs {
		items = append(items, handoffItem{
			ID:        hd.ID.String(),
			Context:   hd.Context,
			Active:    hd.Active,
			ExpiresAt: hd.ExpiresAt.UTC().Format(time.RFC3339),
			MaxUses:   hd.MaxUses,
			UsedCount: hd.UsedCount,
			CreatedAt: hd.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"handoffs": items})
}

// deactivate soft-deletes a handoff owned by the calling tenant.
func (h *handoffHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	t, ok := tenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Tenant not resolved")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid handoff ID")
		return
	}

	if err := h.service.Deactivate(r.Context(), id, t.ID); err != nil {
		if errors.Is(err, handoff.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Handoff not found")
			return
		}
		h.logger.Error("deactivating handoff", "tenant_id", t.ID, "handoff_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to deactivate handoff")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// validate is the public token-check route the share-link page calls before
// it opens the widget. No tenant header is required; the token alone locates
// the handoff.
func (h *handoffHandler) validate(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	hd, err := h.service.Validate(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, handoff.ErrMalformedToken):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"valid": false,
				"error": "Invalid token format",
			})
		case errors.Is(err, handoff.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]any{
				"valid": false,
				"error": "Handoff not found or expired",
			})
		default:
			h.logger.Error("validating handoff token", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to validate token")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":     true,
		"handoffId": hd.ID.String(),
		"tenantId":  hd.TenantID,
	})
}
