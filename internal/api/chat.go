package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parakeetchat/parakeet/internal/chat"
	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/protocol"
	"github.com/parakeetchat/parakeet/internal/session"
)

// maxChatBodyBytes caps chat request bodies. A full widget history with the
// 1000-character inputs the widget enforces stays well under this.
const maxChatBodyBytes = 1 << 20

// TurnRunner starts chat turns. Satisfied by *chat.Orchestrator.
type TurnRunner interface {
	Begin(ctx context.Context, req chat.TurnRequest) (*chat.Turn, error)
}

// HistoryStore reads conversation history. Satisfied by *session.Store.
type HistoryStore interface {
	History(ctx context.Context, tenantID string, clientSessionID uuid.UUID, limit int32) ([]session.Message, error)
}

// chatHandler serves the streaming chat turn and conversation history.
type chatHandler struct {
	runner   TurnRunner
	sessions HistoryStore
	logger   log.Logger
}

// chatRequest is the body of POST /api/v1/chat.
type chatRequest struct {
	Messages []chat.InboundMessage `json:"messages"`
	// HandoffID carries the id returned by the public token-validation
	// endpoint when the widget was opened from a share link.
	HandoffID string `json:"handoffId,omitempty"`
}

// stream runs one chat turn and streams the response as SSE frames.
// Validation failures are reported as plain JSON errors before any SSE
// bytes are written; failures mid-stream arrive as an error frame on the
// already-committed 200 response.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	t, ok := tenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Tenant not resolved")
		return
	}
	sessionID, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Session not resolved")
		return
	}

	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	turn, err := h.runner.Begin(r.Context(), chat.TurnRequest{
		Tenant:    t,
		SessionID: sessionID,
		Messages:  req.Messages,
		HandoffID: req.HandoffID,
	})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNoMessages):
			writeError(w, http.StatusBadRequest, "Messages are required")
		case errors.Is(err, chat.ErrLastMessageNotUser):
			writeError(w, http.StatusBadRequest, "Last message must be from user")
		case errors.Is(err, chat.ErrNoAgentConfig):
			writeError(w, http.StatusNotFound, "No agent configured for this tenant")
		default:
			h.logger.Error("starting chat turn",
				"tenant_id", t.ID,
				"session_id", sessionID,
				"error", err,
			)
			writeError(w, http.StatusInternalServerError, "Failed to start chat")
		}
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	enc := protocol.NewEncoder(w)
	start := time.Now()

	result, err := turn.Stream(r.Context(), func(frame any) error {
		return enc.Write(frame)
	})
	if err != nil {
		// The error frame (if deliverable) went out inside Stream; here the
		// stream is over either way, so just record it.
		h.logger.Error("chat turn failed",
			"tenant_id", t.ID,
			"session_id", sessionID,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}

	h.logger.Info("chat turn completed",
		"tenant_id", t.ID,
		"session_id", sessionID,
		"conversation_id", result.ConversationID,
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens,
		"duration", time.Since(start),
	)
}

// historyMessage is one entry of the history response.
type historyMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// history returns the chronological messages of the caller's session.
// An optional {sessionId} path segment overrides the header session, which
// lets a freshly reloaded widget fetch the transcript it persisted locally.
func (h *chatHandler) history(w http.ResponseWriter, r *http.Request) {
	t, ok := tenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Tenant not resolved")
		return
	}

	sessionID, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Session not resolved")
		return
	}
	if raw := r.PathValue("sessionId"); raw != "" {
		id, err := session.ValidateID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		sessionID = id
	}

	messages, err := h.sessions.History(r.Context(), t.ID, sessionID, session.DefaultHistoryLimit)
	if err != nil {
		h.logger.Error("loading chat history",
			"tenant_id", t.ID,
			"session_id", sessionID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	out := make([]historyMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, historyMessage{
			ID:        m.ID.String(),
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tenantId":  t.ID,
		"sessionId": sessionID.String(),
		"messages":  out,
	})
}
