// Package protocol defines the typed stream frames exchanged between the
// gateway and embedded widgets, plus the SSE framing used on the wire.
//
// Every frame is a JSON object with a "type" discriminator, written as a
// single SSE data line:
//
//	data: {"type":"text-delta","content":"Hel"}
//
// The widget parser splits on newlines and only consumes "data: " lines, so
// the encoder never emits "event:" or "id:" fields.
package protocol

// Frame type discriminators.
const (
	TypeTextDelta   = "text-delta"
	TypeToolCall    = "tool-call"
	TypeComponent   = "component"
	TypeSuggestions = "suggestions"
	TypeStepFinish  = "step-finish"
	TypeError       = "error"
	TypeDone        = "done"
)

// FinishReasonToolCalls is the only finish reason emitted mid-stream: a
// step-finish frame marks a step that ended by requesting tools.
const FinishReasonToolCalls = "tool-calls"

// TextDelta carries an incremental chunk of assistant text.
type TextDelta struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// NewTextDelta builds a text-delta frame.
func NewTextDelta(content string) TextDelta {
	return TextDelta{Type: TypeTextDelta, Content: content}
}

// ToolCall announces a tool invocation so the widget can show activity.
type ToolCall struct {
	Type     string         `json:"type"`
	ToolName string         `json:"toolName"`
	Args     map[string]any `json:"args"`
}

// NewToolCall builds a tool-call frame.
func NewToolCall(toolName string, args map[string]any) ToolCall {
	return ToolCall{Type: TypeToolCall, ToolName: toolName, Args: args}
}

// Component instructs the widget to render an interactive element inline.
type Component struct {
	Type      string         `json:"type"`
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
}

// NewComponent builds a component frame.
func NewComponent(name string, props map[string]any) Component {
	return Component{Type: TypeComponent, Component: name, Props: props}
}

// Suggestions carries follow-up prompts the widget offers as quick replies.
type Suggestions struct {
	Type        string   `json:"type"`
	Suggestions []string `json:"suggestions"`
}

// NewSuggestions builds a suggestions frame.
func NewSuggestions(suggestions []string) Suggestions {
	return Suggestions{Type: TypeSuggestions, Suggestions: suggestions}
}

// StepFinish marks the end of an intermediate model step that requested
// tools. The final step emits done instead.
type StepFinish struct {
	Type         string `json:"type"`
	FinishReason string `json:"finishReason"`
}

// NewStepFinish builds a step-finish frame.
func NewStepFinish(reason string) StepFinish {
	return StepFinish{Type: TypeStepFinish, FinishReason: reason}
}

// ErrorEvent reports a mid-stream failure. It terminates the stream; the
// HTTP status is already 200 by the time it can occur.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// NewError builds an error frame.
func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Error: message}
}

// Usage reports token counts for the turn.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Done is the terminal frame of a successful turn.
type Done struct {
	Type               string `json:"type"`
	SessionID          string `json:"sessionId"`
	UserMessageID      string `json:"userMessageId"`
	AssistantMessageID string `json:"assistantMessageId"`
	Usage              Usage  `json:"usage"`
}

// NewDone builds a done frame.
func NewDone(sessionID, userMessageID, assistantMessageID string, usage Usage) Done {
	return Done{
		Type:               TypeDone,
		SessionID:          sessionID,
		UserMessageID:      userMessageID,
		AssistantMessageID: assistantMessageID,
		Usage:              usage,
	}
}
