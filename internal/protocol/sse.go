package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnknownFrame indicates a frame whose type discriminator is not part of
// the protocol.
var ErrUnknownFrame = errors.New("unknown frame type")

// Encoder writes frames to an SSE response.
// Each frame is flushed immediately so deltas reach the widget as they are
// produced rather than when the response buffer fills.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder creates an encoder over w. When w implements http.Flusher
// (every *http.ResponseWriter that supports streaming does), each frame is
// flushed after writing.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	return enc
}

// Write marshals v and writes it as one SSE data frame.
func (e *Encoder) Write(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// Decoder reads frames from an SSE stream. It is the client-side counterpart
// of Encoder, used by Go widget hosts and by tests.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder creates a decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{scanner: scanner}
}

// Next returns the next frame as one of the concrete frame types
// (TextDelta, ToolCall, Component, Suggestions, StepFinish, ErrorEvent,
// Done). It returns io.EOF when the stream ends.
func (d *Decoder) Next() (any, error) {
	for d.scanner.Scan() {
		line := d.scanner.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			// Blank separators and any non-data lines are skipped.
			continue
		}
		return decodeFrame([]byte(payload))
	}
	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}
	return nil, io.EOF
}

func decodeFrame(payload []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("parsing frame: %w", err)
	}

	var (
		v   any
		err error
	)
	switch envelope.Type {
	case TypeTextDelta:
		var f TextDelta
		err = json.Unmarshal(payload, &f)
		v = f
	case TypeToolCall:
		var f ToolCall
		err = json.Unmarshal(payload, &f)
		v = f
	case TypeComponent:
		var f Component
		err = json.Unmarshal(payload, &f)
		v = f
	case TypeSuggestions:
		var f Suggestions
		err = json.Unmarshal(payload, &f)
		v = f
	case TypeStepFinish:
		var f StepFinish
		err = json.Unmarshal(payload, &f)
		v = f
	case TypeError:
		var f ErrorEvent
		err = json.Unmarshal(payload, &f)
		v = f
	case TypeDone:
		var f Done
		err = json.Unmarshal(payload, &f)
		v = f
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, envelope.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s frame: %w", envelope.Type, err)
	}
	return v, nil
}

// Assembler folds a frame sequence back into a completed turn: the full
// assistant text, rendered components, and the terminal frame.
type Assembler struct {
	text        strings.Builder
	ToolCalls   []ToolCall
	Components  []Component
	Suggestions []string
	Done        *Done
	Err         string
}

// Apply folds one frame into the assembled state.
func (a *Assembler) Apply(frame any) {
	switch f := frame.(type) {
	case TextDelta:
		a.text.WriteString(f.Content)
	case ToolCall:
		a.ToolCalls = append(a.ToolCalls, f)
	case Component:
		a.Components = append(a.Components, f)
	case Suggestions:
		a.Suggestions = f.Suggestions
	case ErrorEvent:
		a.Err = f.Error
	case Done:
		done := f
		a.Done = &done
	}
}

// Text returns the accumulated assistant text.
func (a *Assembler) Text() string {
	return a.text.String()
}

// Complete reports whether a terminal frame (done or error) has arrived.
func (a *Assembler) Complete() bool {
	return a.Done != nil || a.Err != ""
}
