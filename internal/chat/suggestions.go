package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Suggestion generation is a best-effort nicety: it uses the fast model on a
// truncated transcript, and every failure is swallowed so it can never break
// a settled turn.
const (
	maxSuggestions = 4

	// suggestionHistory is how many trailing messages feed the prompt.
	suggestionHistory = 4

	// suggestionMessageChars truncates each history message.
	suggestionMessageChars = 200

	// suggestionResponseChars truncates the assistant response.
	suggestionResponseChars = 500

	suggestionTimeout = 10 * time.Second
)

const suggestionPrompt = `Based on this conversation between a website visitor and a company's assistant, suggest up to %d short follow-up questions the visitor might naturally ask next. Each must be under 60 characters. Respond with ONLY a JSON array of strings, nothing else.

Conversation:
%s`

func (o *Orchestrator) generateSuggestions(ctx context.Context, messages []InboundMessage, assistantText string) []string {
	ctx, cancel := context.WithTimeout(ctx, suggestionTimeout)
	defer cancel()

	prompt := fmt.Sprintf(suggestionPrompt, maxSuggestions, suggestionTranscript(messages, assistantText))
	raw, err := o.client.Complete(ctx, o.fastModel, prompt)
	if err != nil {
		o.logger.Debug("suggestion generation failed", "error", err)
		return nil
	}

	suggestions, err := parseSuggestions(raw)
	if err != nil {
		o.logger.Debug("could not parse suggestions", "error", err, "raw", truncateText(raw, 200))
		return nil
	}
	return suggestions
}

func suggestionTranscript(messages []InboundMessage, assistantText string) string {
	if len(messages) > suggestionHistory {
		messages = messages[len(messages)-suggestionHistory:]
	}

	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, truncateText(m.Content, suggestionMessageChars))
	}
	fmt.Fprintf(&b, "assistant: %s\n", truncateText(assistantText, suggestionResponseChars))
	return b.String()
}

// parseSuggestions extracts a JSON string array from model output, tolerating
// markdown fences and surrounding prose.
func parseSuggestions(raw string) ([]string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in output")
	}

	var parsed []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling suggestions: %w", err)
	}

	suggestions := make([]string, 0, maxSuggestions)
	for _, s := range parsed {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		suggestions = append(suggestions, s)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions, nil
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
