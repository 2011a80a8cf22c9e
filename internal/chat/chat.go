// Package chat orchestrates one conversational turn: compose the tenant's
// system prompt (optionally enriched with redeemed handoff context), persist
// the user message, drive a multi-step model exchange with tools, and reduce
// the model's output parts into the ordered frame stream of the wire
// protocol.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/parakeetchat/parakeet/internal/handoff"
	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/protocol"
	"github.com/parakeetchat/parakeet/internal/session"
	"github.com/parakeetchat/parakeet/internal/tenant"
	"github.com/parakeetchat/parakeet/internal/tools"
)

var (
	// ErrNoMessages indicates an empty message history.
	ErrNoMessages = errors.New("messages are required")

	// ErrLastMessageNotUser indicates the history does not end with a
	// user-authored message.
	ErrLastMessageNotUser = errors.New("last message must be from user")

	// ErrNoAgentConfig indicates the tenant has no agent configuration.
	// No default model is silently substituted.
	ErrNoAgentConfig = errors.New("no agent configured")
)

// FallbackMessage is emitted when the model produces an empty response.
const FallbackMessage = "I'm sorry, I couldn't come up with a response. Could you rephrase that?"

// frameBuffer decouples model output from client writes; a slow consumer
// backpressures the producer once it fills.
const frameBuffer = 64

// defaultMaxSteps bounds the tool-calling loop when the tenant does not
// configure one.
const defaultMaxSteps = 5

// EmitFunc delivers one protocol frame to the client. Returning an error
// cancels the turn.
type EmitFunc func(frame any) error

// InboundMessage is one caller-supplied history entry.
type InboundMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest carries everything needed to run one turn.
type TurnRequest struct {
	Tenant    *tenant.Tenant
	SessionID uuid.UUID
	Messages  []InboundMessage
	// HandoffID, when present, is the id of a previously validated handoff
	// whose context should enrich the prompt. The widget obtains it from
	// the public token-validation endpoint.
	HandoffID string
}

// TurnResult summarizes a settled turn.
type TurnResult struct {
	ConversationID     uuid.UUID
	UserMessageID      uuid.UUID
	AssistantMessageID uuid.UUID
	Text               string
	Usage              protocol.Usage
}

// SessionStore persists conversations and messages.
type SessionStore interface {
	GetOrCreate(ctx context.Context, tenantID string, clientSessionID uuid.UUID) (*session.Conversation, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string, metadata map[string]any) (uuid.UUID, error)
}

// HandoffRedeemer consumes handoffs for prompt-context injection.
type HandoffRedeemer interface {
	Consume(ctx context.Context, id uuid.UUID, tenantID string) (*handoff.Handoff, error)
}

// ToolResolver maps a tenant's tool selection to registered tool refs.
type ToolResolver interface {
	ForTenant(selection []string) []ai.ToolRef
}

// Config contains all required parameters for the orchestrator.
type Config struct {
	Client   Client
	Sessions SessionStore
	Handoffs HandoffRedeemer
	Tools    ToolResolver
	Logger   log.Logger

	// DefaultModel is the provider-qualified model used when a tenant
	// does not override it.
	DefaultModel string

	// FastModel backs suggestion generation. Falls back to DefaultModel.
	FastModel string

	// Qualify turns a tenant's unqualified model override into a
	// provider-qualified name. Nil means overrides are used as-is.
	Qualify func(name string) string

	// DefaultTemperature applies when a tenant does not set one.
	DefaultTemperature float32

	// DefaultMaxSteps bounds the tool loop when unset per tenant.
	DefaultMaxSteps int
}

func (cfg Config) validate() error {
	if cfg.Client == nil {
		return errors.New("model client is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Handoffs == nil {
		return errors.New("handoff redeemer is required")
	}
	if cfg.Tools == nil {
		return errors.New("tool resolver is required")
	}
	if cfg.DefaultModel == "" {
		return errors.New("default model is required")
	}
	return nil
}

// Orchestrator runs chat turns. It is stateless across turns and safe for
// concurrent use.
type Orchestrator struct {
	client   Client
	sessions SessionStore
	handoffs HandoffRedeemer
	tools    ToolResolver
	logger   log.Logger

	defaultModel       string
	fastModel          string
	qualify            func(string) string
	defaultTemperature float32
	defaultMaxSteps    int
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	fastModel := cfg.FastModel
	if fastModel == "" {
		fastModel = cfg.DefaultModel
	}
	qualify := cfg.Qualify
	if qualify == nil {
		qualify = func(name string) string { return name }
	}
	maxSteps := cfg.DefaultMaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	return &Orchestrator{
		client:             cfg.Client,
		sessions:           cfg.Sessions,
		handoffs:           cfg.Handoffs,
		tools:              cfg.Tools,
		logger:             logger,
		defaultModel:       cfg.DefaultModel,
		fastModel:          fastModel,
		qualify:            qualify,
		defaultTemperature: cfg.DefaultTemperature,
		defaultMaxSteps:    maxSteps,
	}, nil
}

// Turn is a validated, persisted-and-ready turn. Created by Begin before any
// response bytes are written, so validation failures can still map to HTTP
// status codes.
type Turn struct {
	o *Orchestrator

	tenantID      string
	sessionID     uuid.UUID
	conversation  *session.Conversation
	userMessageID uuid.UUID
	messages      []InboundMessage
	params        GenerateParams
	schedulingURL string
}

// Begin validates the request, redeems any handoff token, resolves the
// tenant's agent configuration, and persists the user message. The user's
// intent is stored before the model is invoked, so it survives a failed
// generation.
func (o *Orchestrator) Begin(ctx context.Context, req TurnRequest) (*Turn, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != session.RoleUser {
		return nil, ErrLastMessageNotUser
	}

	agentCfg := req.Tenant.AgentConfig
	if agentCfg == nil {
		return nil, fmt.Errorf("tenant %s: %w", req.Tenant.ID, ErrNoAgentConfig)
	}

	handoffContext := ""
	if req.HandoffID != "" {
		handoffContext = o.redeemHandoff(ctx, req.Tenant.ID, req.HandoffID)
	}

	conv, err := o.sessions.GetOrCreate(ctx, req.Tenant.ID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	userMessageID, err := o.sessions.AppendMessage(ctx, conv.ID, session.RoleUser, last.Content, nil)
	if err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}

	model := o.defaultModel
	if agentCfg.Model != "" {
		model = o.qualify(agentCfg.Model)
	}
	temperature := agentCfg.Temperature
	if temperature == nil {
		t := o.defaultTemperature
		temperature = &t
	}
	maxTurns := agentCfg.MaxSteps
	if maxTurns <= 0 {
		maxTurns = o.defaultMaxSteps
	}

	return &Turn{
		o:             o,
		tenantID:      req.Tenant.ID,
		sessionID:     req.SessionID,
		conversation:  conv,
		userMessageID: userMessageID,
		messages:      req.Messages,
		params: GenerateParams{
			Model:       model,
			System:      composeSystemPrompt(agentCfg, handoffContext),
			Messages:    toModelMessages(req.Messages),
			Tools:       o.tools.ForTenant(agentCfg.Tools),
			MaxTurns:    maxTurns,
			Temperature: temperature,
		},
		schedulingURL: agentCfg.SchedulingURL,
	}, nil
}

// Stream drives the model and emits protocol frames in arrival order. Model
// output flows producer to consumer over a buffered channel: the producer
// goroutine runs the generation (including synchronous tool execution), the
// consumer translates and writes frames.
//
// Mid-stream failures emit a terminal error frame before returning; the
// returned error is for logging, the client has already been told.
func (t *Turn) Stream(ctx context.Context, emit EmitFunc) (*TurnResult, error) {
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan any, frameBuffer)
	push := func(frame any) bool {
		select {
		case frames <- frame:
			return true
		case <-genCtx.Done():
			return false
		}
	}

	toolCtx := tools.WithNotifier(genCtx, func(ev tools.ComponentEvent) {
		push(protocol.NewComponent(ev.Component, ev.Props))
		if ev.Message != "" {
			push(protocol.NewTextDelta(ev.Message))
		}
	})
	toolCtx = tools.WithSchedulingURL(toolCtx, t.schedulingURL)

	var (
		resp   *ai.ModelResponse
		genErr error
	)
	go func() {
		defer close(frames)
		resp, genErr = t.o.client.Generate(toolCtx, t.params, func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			return translateChunk(chunk, push)
		})
	}()

	var text strings.Builder
	var emitErr error
	for frame := range frames {
		if emitErr != nil {
			continue // drain so the producer can finish
		}
		if delta, ok := frame.(protocol.TextDelta); ok {
			text.WriteString(delta.Content)
		}
		if err := emit(frame); err != nil {
			emitErr = err
			cancel()
		}
	}
	// The producer has exited; resp and genErr are settled.

	if emitErr != nil {
		// Text already delivered before the client went away still belongs
		// in the conversation history. The request context is dead, so
		// persist outside it.
		t.persistPartial(context.WithoutCancel(ctx), text.String(), emitErr)
		return nil, fmt.Errorf("emitting frame: %w", emitErr)
	}

	finalText := text.String()
	if genErr != nil {
		return nil, t.fail(ctx, emit, finalText, genErr)
	}

	if strings.TrimSpace(finalText) == "" {
		t.o.logger.Warn("model returned empty response",
			"tenant_id", t.tenantID, "session_id", t.sessionID)
		finalText = FallbackMessage
		if err := emit(protocol.NewTextDelta(finalText)); err != nil {
			return nil, fmt.Errorf("emitting frame: %w", err)
		}
	}

	assistantMessageID, err := t.o.sessions.AppendMessage(ctx, t.conversation.ID, session.RoleAssistant, finalText, nil)
	if err != nil {
		// The client already rendered the text; losing the row is better
		// than failing the settled turn.
		t.o.logger.Error("failed to persist assistant message",
			"conversation_id", t.conversation.ID, "error", err)
	}

	if suggestions := t.o.generateSuggestions(ctx, t.messages, finalText); len(suggestions) > 0 {
		if err := emit(protocol.NewSuggestions(suggestions)); err != nil {
			return nil, fmt.Errorf("emitting frame: %w", err)
		}
	}

	usage := usageFrom(resp)
	assistantID := ""
	if assistantMessageID != uuid.Nil {
		assistantID = assistantMessageID.String()
	}
	if err := emit(protocol.NewDone(t.sessionID.String(), t.userMessageID.String(), assistantID, usage)); err != nil {
		return nil, fmt.Errorf("emitting frame: %w", err)
	}

	return &TurnResult{
		ConversationID:     t.conversation.ID,
		UserMessageID:      t.userMessageID,
		AssistantMessageID: assistantMessageID,
		Text:               finalText,
		Usage:              usage,
	}, nil
}

// fail persists whatever assistant text accumulated, tagged as an error so
// no generated content is silently discarded, then emits the terminal error
// frame.
func (t *Turn) fail(ctx context.Context, emit EmitFunc, partialText string, genErr error) error {
	t.persistPartial(ctx, partialText, genErr)

	if err := emit(protocol.NewError(genErr.Error())); err != nil {
		t.o.logger.Debug("could not deliver error frame", "error", err)
	}
	return fmt.Errorf("model turn failed: %w", genErr)
}

// persistPartial stores accumulated assistant text tagged with the cause of
// the interruption. A blank accumulation is skipped.
func (t *Turn) persistPartial(ctx context.Context, partialText string, cause error) {
	if strings.TrimSpace(partialText) == "" {
		return
	}
	metadata := map[string]any{"error": true, "errorMessage": cause.Error()}
	if _, err := t.o.sessions.AppendMessage(ctx, t.conversation.ID, session.RoleAssistant, partialText, metadata); err != nil {
		t.o.logger.Error("failed to persist partial assistant message",
			"conversation_id", t.conversation.ID, "error", err)
	}
}

// translateChunk maps one model output chunk to protocol frames, preserving
// part order. A chunk that requested tools is closed with a step-finish
// frame; the final step ends with done instead, emitted by Stream.
func translateChunk(chunk *ai.ModelResponseChunk, push func(any) bool) error {
	requestedTools := false
	for _, part := range chunk.Content {
		switch {
		case part.IsText():
			if part.Text == "" {
				continue
			}
			if !push(protocol.NewTextDelta(part.Text)) {
				return context.Canceled
			}
		case part.ToolRequest != nil:
			args, _ := part.ToolRequest.Input.(map[string]any)
			if !push(protocol.NewToolCall(part.ToolRequest.Name, args)) {
				return context.Canceled
			}
			requestedTools = true
		}
	}
	if requestedTools {
		if !push(protocol.NewStepFinish(protocol.FinishReasonToolCalls)) {
			return context.Canceled
		}
	}
	return nil
}

// redeemHandoff exchanges a handoff id for its context, consuming one use.
// Redemption is best-effort enrichment: any failure is logged and the turn
// proceeds without context.
func (o *Orchestrator) redeemHandoff(ctx context.Context, tenantID, rawID string) string {
	id, err := uuid.Parse(rawID)
	if err != nil {
		o.logger.Warn("ignoring malformed handoff id", "tenant_id", tenantID, "error", err)
		return ""
	}

	h, err := o.handoffs.Consume(ctx, id, tenantID)
	if err != nil {
		o.logger.Warn("ignoring unredeemable handoff", "tenant_id", tenantID, "handoff_id", id, "error", err)
		return ""
	}

	o.logger.Info("handoff context injected", "tenant_id", tenantID, "handoff_id", id)
	return h.Context
}

// composeSystemPrompt renders the effective system prompt: base prompt,
// instructions as bullets, and the delimited handoff block the user never
// sees.
func composeSystemPrompt(cfg *tenant.AgentConfig, handoffContext string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(cfg.SystemPrompt))

	if len(cfg.Instructions) > 0 {
		b.WriteString("\n")
		for _, instruction := range cfg.Instructions {
			b.WriteString("\n- ")
			b.WriteString(instruction)
		}
	}

	if handoffContext != "" {
		b.WriteString("\n\n--- EMAIL HANDOFF CONTEXT ---\n")
		b.WriteString(handoffContext)
		b.WriteString("\n--- END HANDOFF CONTEXT ---")
	}

	return b.String()
}

func toModelMessages(messages []InboundMessage) []*ai.Message {
	out := make([]*ai.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case session.RoleUser:
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case session.RoleAssistant:
			out = append(out, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		}
	}
	return out
}

func usageFrom(resp *ai.ModelResponse) protocol.Usage {
	if resp == nil || resp.Usage == nil {
		return protocol.Usage{}
	}
	return protocol.Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}
}
