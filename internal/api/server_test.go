package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/parakeetchat/parakeet/internal/auth"
	"github.com/parakeetchat/parakeet/internal/chat"
	"github.com/parakeetchat/parakeet/internal/handoff"
	"github.com/parakeetchat/parakeet/internal/session"
	"github.com/parakeetchat/parakeet/internal/telemetry"
	"github.com/parakeetchat/parakeet/internal/tenant"
)

// --- fakes -----------------------------------------------------------------

type fakeTenantStore struct {
	tenants   map[string]*tenant.Tenant
	createErr error
	updateErr error
}

func (f *fakeTenantStore) Get(_ context.Context, id string) (*tenant.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tenant.ErrNotFound, id)
	}
	return t, nil
}

func (f *fakeTenantStore) Create(_ context.Context, params tenant.CreateParams) (*tenant.Tenant, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, exists := f.tenants[params.ID]; exists {
		return nil, fmt.Errorf("%w: %s", tenant.ErrAlreadyExists, params.ID)
	}
	t := &tenant.Tenant{
		ID:             params.ID,
		Name:           params.Name,
		AllowedDomains: params.AllowedDomains,
		Active:         true,
		AgentConfig:    params.AgentConfig,
		UIConfig:       params.UIConfig,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	f.tenants[params.ID] = t
	return t, nil
}

func (f *fakeTenantStore) List(_ context.Context) ([]*tenant.Tenant, error) {
	out := make([]*tenant.Tenant, 0, len(f.tenants))
	for _, t := range f.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTenantStore) Update(_ context.Context, id string, params tenant.UpdateParams) (*tenant.Tenant, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	t, ok := f.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tenant.ErrNotFound, id)
	}
	t.Name = params.Name
	t.AllowedDomains = params.AllowedDomains
	t.Active = params.Active
	t.AgentConfig = params.AgentConfig
	t.UIConfig = params.UIConfig
	return t, nil
}

func (f *fakeTenantStore) Deactivate(_ context.Context, id string) error {
	t, ok := f.tenants[id]
	if !ok {
		return fmt.Errorf("%w: %s", tenant.ErrNotFound, id)
	}
	t.Active = false
	return nil
}

type fakeHistoryStore struct {
	messages []session.Message
	err      error

	lastTenantID  string
	lastSessionID uuid.UUID
}

func (f *fakeHistoryStore) History(_ context.Context, tenantID string, clientSessionID uuid.UUID, _ int32) ([]session.Message, error) {
	f.lastTenantID = tenantID
	f.lastSessionID = clientSessionID
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

type fakeHandoffService struct {
	issued      *handoff.Issued
	issueErr    error
	issueCalls  []handoff.IssueParams
	validated   *handoff.Handoff
	validateErr error
	listed      []*handoff.Handoff
	deactErr    error
}

func (f *fakeHandoffService) Issue(_ context.Context, _ string, params handoff.IssueParams) (*handoff.Issued, error) {
	f.issueCalls = append(f.issueCalls, params)
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	return f.issued, nil
}

func (f *fakeHandoffService) Validate(_ context.Context, token string) (*handoff.Handoff, error) {
	if len(token) != handoff.TokenLength {
		return nil, fmt.Errorf("%w: got %d characters", handoff.ErrMalformedToken, len(token))
	}
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.validated, nil
}

func (f *fakeHandoffService) Deactivate(_ context.Context, _ uuid.UUID, _ string) error {
	return f.deactErr
}

func (f *fakeHandoffService) List(_ context.Context, _ string) ([]*handoff.Handoff, error) {
	return f.listed, nil
}

type fakeIngestor struct {
	err      error
	received int
	saved    int
}

func (f *fakeIngestor) Ingest(_ context.Context, _ string, events []telemetry.Event) (int, int, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	if len(events) == 0 {
		return 0, 0, telemetry.ErrEmptyBatch
	}
	if f.received != 0 || f.saved != 0 {
		return f.received, f.saved, nil
	}
	return len(events), len(events), nil
}

// stubClient scripts the model side of chat turns.
type stubClient struct {
	chunks   []string
	response *ai.ModelResponse
	err      error
}

func (s *stubClient) Generate(ctx context.Context, _ chat.GenerateParams, stream chat.StreamFunc) (*ai.ModelResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, text := range s.chunks {
		if err := stream(ctx, &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart(text)}}); err != nil {
			return nil, err
		}
	}
	if s.response != nil {
		return s.response, nil
	}
	return &ai.ModelResponse{}, nil
}

func (s *stubClient) Complete(context.Context, string, string) (string, error) {
	return "", errors.New("no completion scripted")
}

type stubChatSessions struct{}

func (stubChatSessions) GetOrCreate(_ context.Context, tenantID string, clientSessionID uuid.UUID) (*session.Conversation, error) {
	return &session.Conversation{ID: uuid.New(), TenantID: tenantID, ClientSessionID: clientSessionID}, nil
}

func (stubChatSessions) AppendMessage(context.Context, uuid.UUID, string, string, map[string]any) (uuid.UUID, error) {
	return uuid.New(), nil
}

type stubRedeemer struct{}

func (stubRedeemer) Consume(context.Context, uuid.UUID, string) (*handoff.Handoff, error) {
	return nil, handoff.ErrNotFound
}

type stubTools struct{}

func (stubTools) ForTenant([]string) []ai.ToolRef { return nil }

// --- harness ---------------------------------------------------------------

const testTenantID = "acme"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type serverHarness struct {
	server   *Server
	tenants  *fakeTenantStore
	history  *fakeHistoryStore
	handoffs *fakeHandoffService
	events   *fakeIngestor
	client   *stubClient
}

func testTenant() *tenant.Tenant {
	return &tenant.Tenant{
		ID:             testTenantID,
		Name:           "Acme Inc",
		AllowedDomains: []string{"acme.com", "*.acme.com"},
		Active:         true,
		AgentConfig: &tenant.AgentConfig{
			SystemPrompt: "You are Acme's assistant.",
		},
		UIConfig: &tenant.UIConfig{
			ThemeColor: "#1a73e8",
			Title:      "Acme Support",
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func newTestServer(t *testing.T, mutate func(cfg *ServerConfig)) *serverHarness {
	t.Helper()

	h := &serverHarness{
		tenants:  &fakeTenantStore{tenants: map[string]*tenant.Tenant{testTenantID: testTenant()}},
		history:  &fakeHistoryStore{},
		handoffs: &fakeHandoffService{},
		events:   &fakeIngestor{},
		client:   &stubClient{chunks: []string{"Hello!"}},
	}

	logger := discardLogger()
	orch, err := chat.New(chat.Config{
		Client:       h.client,
		Sessions:     stubChatSessions{},
		Handoffs:     stubRedeemer{},
		Tools:        stubTools{},
		Logger:       logger,
		DefaultModel: "googleai/gemini-2.5-flash",
	})
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}

	cfg := ServerConfig{
		Logger:         logger,
		Chat:           orch,
		Sessions:       h.history,
		Tenants:        h.tenants,
		Handoffs:       h.handoffs,
		Events:         h.events,
		Auth:           auth.NewDomainStrategy(h.tenants, logger),
		AdminAPIKey:    "test-admin-key",
		PublicAPIURL:   "https://api.parakeetchat.dev",
		PublicCDNURL:   "https://cdn.parakeetchat.dev",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	h.server = srv
	return h
}

// widgetRequest builds a request carrying valid tenant auth headers.
func widgetRequest(method, path string, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	r.Header.Set("Origin", "https://acme.com")
	r.Header.Set("X-Tenant-Id", testTenantID)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return out
}

// --- tests -----------------------------------------------------------------

func TestNewServer_MissingDependencies(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	if err == nil {
		t.Fatal("NewServer(empty config) expected error, got nil")
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, nil)

	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := decodeBody(t, w.Body)["status"]; got != "healthy" {
		t.Errorf("status = %v, want %q", got, "healthy")
	}
}

func TestReadyEndpoint_NoPool(t *testing.T) {
	h := newTestServer(t, nil)

	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /ready status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHealthBypassesTenantAuth(t *testing.T) {
	h := newTestServer(t, nil)

	// No X-Tenant-Id, no Origin: probes must still succeed.
	for _, path := range []string{"/health", "/ready"} {
		w := httptest.NewRecorder()
		h.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	r.Header.Set("Origin", "https://acme.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// Browsers send the requested header names lowercase per the Fetch spec,
	// and the CORS middleware matches them byte-for-byte.
	r.Header.Set("Access-Control-Request-Headers", "x-tenant-id")

	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://acme.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "https://acme.com")
	}
}

func TestSessionIDEchoedOnProtectedResponses(t *testing.T) {
	h := newTestServer(t, nil)

	r := widgetRequest(http.MethodGet, "/api/v1/chat/history", "")
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	echoed := w.Header().Get("X-Session-Id")
	if _, err := uuid.Parse(echoed); err != nil {
		t.Fatalf("X-Session-Id = %q, not a UUID: %v", echoed, err)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	h := newTestServer(t, func(cfg *ServerConfig) {
		cfg.RateLimitRPS = 1
		cfg.RateLimitBurst = 1
	})

	first := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(first, widgetRequest(http.MethodGet, "/api/v1/chat/history", ""))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", first.Code, http.StatusOK)
	}

	second := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(second, widgetRequest(http.MethodGet, "/api/v1/chat/history", ""))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}
}
