package tools

import "context"

// ComponentEvent is a "render this UI element" instruction produced by a tool
// while a turn is streaming. Message is the user-facing text that accompanies
// the element in the transcript.
type ComponentEvent struct {
	Component string
	Props     map[string]any
	Message   string
}

// Notifier receives component events emitted during tool execution.
type Notifier func(ComponentEvent)

type notifierKey struct{}

// WithNotifier installs a notifier for the duration of a turn. Tools running
// under this context surface components through it, in execution order.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierKey{}, n)
}

// Notify delivers an event to the turn's notifier. Without one (direct tool
// invocation outside a streaming turn) the event is dropped.
func Notify(ctx context.Context, ev ComponentEvent) {
	if n, ok := ctx.Value(notifierKey{}).(Notifier); ok && n != nil {
		n(ev)
	}
}

type schedulingURLKey struct{}

// WithSchedulingURL overrides the registry's default scheduling link for one
// turn, carrying the tenant's configured calendar into tool execution.
func WithSchedulingURL(ctx context.Context, url string) context.Context {
	if url == "" {
		return ctx
	}
	return context.WithValue(ctx, schedulingURLKey{}, url)
}

func schedulingURLFrom(ctx context.Context) string {
	if url, ok := ctx.Value(schedulingURLKey{}).(string); ok {
		return url
	}
	return ""
}
