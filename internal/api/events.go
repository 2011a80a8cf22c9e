package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/telemetry"
)

// EventIngestor persists telemetry batches. Satisfied by *telemetry.Ingestor.
type EventIngestor interface {
	Ingest(ctx context.Context, tenantID string, events []telemetry.Event) (received, saved int, err error)
}

type eventsHandler struct {
	ingestor EventIngestor
	logger   log.Logger
}

type eventsRequest struct {
	Events []telemetry.Event `json:"events"`
}

// ingest accepts one telemetry batch from the widget. Batch-level problems
// reject the request; per-event problems silently drop the event, which the
// received/saved counts make visible to the caller.
func (h *eventsHandler) ingest(w http.ResponseWriter, r *http.Request) {
	t, ok := tenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Tenant not resolved")
		return
	}

	var req eventsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	received, saved, err := h.ingestor.Ingest(r.Context(), t.ID, req.Events)
	if err != nil {
		switch {
		case errors.Is(err, telemetry.ErrEmptyBatch):
			writeError(w, http.StatusBadRequest, "Events array is required")
		case errors.Is(err, telemetry.ErrBatchTooLarge):
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Too many events in batch (max %d)", telemetry.MaxBatchSize))
		default:
			h.logger.Error("ingesting events", "tenant_id", t.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save events")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"received": received,
		"saved":    saved,
		"status":   "ok",
	})
}
