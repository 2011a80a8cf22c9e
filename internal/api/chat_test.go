package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/parakeetchat/parakeet/internal/protocol"
	"github.com/parakeetchat/parakeet/internal/session"
)

func TestChatStream(t *testing.T) {
	h := newTestServer(t, nil)
	h.client.chunks = []string{"Hello", " there!"}
	h.client.response = &ai.ModelResponse{
		Usage: &ai.GenerationUsage{InputTokens: 12, OutputTokens: 7},
	}

	r := widgetRequest(http.MethodPost, "/api/v1/chat",
		`{"messages":[{"role":"user","content":"hi"}]}`)
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	var asm protocol.Assembler
	dec := protocol.NewDecoder(w.Body)
	for {
		frame, err := dec.Next()
		if err != nil {
			break
		}
		asm.Apply(frame)
	}

	if got := asm.Text(); got != "Hello there!" {
		t.Errorf("assembled text = %q, want %q", got, "Hello there!")
	}
	if !asm.Complete() {
		t.Error("stream did not finish with a done frame")
	}
}

func TestChatStream_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed body",
			body:       `{"messages": nope}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "empty messages",
			body:       `{"messages":[]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Messages are required",
		},
		{
			name:       "last message not from user",
			body:       `{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Last message must be from user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, nil)

			r := widgetRequest(http.MethodPost, "/api/v1/chat", tt.body)
			w := httptest.NewRecorder()
			h.server.Handler().ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := decodeBody(t, w.Body)["error"]; got != tt.wantError {
				t.Errorf("error = %v, want %q", got, tt.wantError)
			}
		})
	}
}

func TestChatStream_NoAgentConfig(t *testing.T) {
	h := newTestServer(t, nil)
	h.tenants.tenants[testTenantID].AgentConfig = nil

	r := widgetRequest(http.MethodPost, "/api/v1/chat",
		`{"messages":[{"role":"user","content":"hi"}]}`)
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if got := decodeBody(t, w.Body)["error"]; got != "No agent configured for this tenant" {
		t.Errorf("error = %v", got)
	}
}

func TestChatStream_ModelFailureArrivesInStream(t *testing.T) {
	h := newTestServer(t, nil)
	h.client.err = errors.New("model unavailable")

	r := widgetRequest(http.MethodPost, "/api/v1/chat",
		`{"messages":[{"role":"user","content":"hi"}]}`)
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, r)

	// Headers were committed before the failure, so the status stays 200 and
	// the error travels as a frame.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"type":"error"`) {
		t.Fatalf("body missing error frame: %s", w.Body.String())
	}
}

func TestChatHistory(t *testing.T) {
	h := newTestServer(t, nil)
	msgID := uuid.New()
	h.history.messages = []session.Message{
		{
			ID:        msgID,
			Role:      "user",
			Content:   "hi",
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:        uuid.New(),
			Role:      "assistant",
			Content:   "Hello!",
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC),
		},
	}

	sessionID := uuid.New()
	r := widgetRequest(http.MethodGet, "/api/v1/chat/history", "")
	r.Header.Set("X-Session-Id", sessionID.String())

	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w.Body)
	if body["tenantId"] != testTenantID {
		t.Errorf("tenantId = %v, want %q", body["tenantId"], testTenantID)
	}
	if body["sessionId"] != sessionID.String() {
		t.Errorf("sessionId = %v, want %q", body["sessionId"], sessionID)
	}

	messages, ok := body["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v, want 2 entries", body["messages"])
	}
	first, _ := messages[0].(map[string]any)
	if first["id"] != msgID.String() || first["role"] != "user" || first["content"] != "hi" {
		t.Errorf("first message = %v", first)
	}
	if first["createdAt"] != "2026-03-01T10:00:00Z" {
		t.Errorf("createdAt = %v, want RFC3339 UTC", first["createdAt"])
	}
}

func TestChatHistory_EmptySession(t *testing.T) {
	h := newTestServer(t, nil)

	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, widgetRequest(http.MethodGet, "/api/v1/chat/history", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	messages, ok := decodeBody(t, w.Body)["messages"].([]any)
	if !ok {
		t.Fatal("messages missing from response")
	}
	if len(messages) != 0 {
		t.Errorf("messages = %v, want empty list", messages)
	}
}

func TestChatHistory_PathSessionOverride(t *testing.T) {
	h := newTestServer(t, nil)
	override := uuid.New()

	r := widgetRequest(http.MethodGet, "/api/v1/chat/history/"+override.String(), "")
	r.Header.Set("X-Session-Id", uuid.New().String())

	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if h.history.lastSessionID != override {
		t.Errorf("handler saw session %s, want path override %s", h.history.lastSessionID, override)
	}
}

func TestChatHistory_BadPathSession(t *testing.T) {
	h := newTestServer(t, nil)

	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, widgetRequest(http.MethodGet, "/api/v1/chat/history/not-a-uuid", ""))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
