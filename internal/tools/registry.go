// Package tools defines the gateway's callable tool set.
//
// Tools are registered once with Genkit at startup; per-tenant selection
// happens at turn time via ForTenant. Tools that render inline UI surface
// component events through the notifier installed on the turn context.
package tools

import (
	"context"
	"errors"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/security"
)

// Tool names.
const (
	NameScheduleConsultation = "scheduleConsultation"
	NameGenerateQuickWin     = "generateQuickWin"
)

// TextGenerator produces a completion from a system prompt and a user prompt.
// The quick-win tool uses it to turn scraped page content into a report.
type TextGenerator func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Config carries the dependencies for tool registration.
type Config struct {
	Genkit *genkit.Genkit

	// Generate backs the quick-win report generation.
	Generate TextGenerator

	// SchedulingURL is the default calendar link, overridable per turn
	// via WithSchedulingURL.
	SchedulingURL string

	// FetchTimeout bounds homepage fetches. Zero means 20s.
	FetchTimeout time.Duration

	Logger log.Logger
}

// Registry holds the registered tools and resolves per-tenant tool sets.
type Registry struct {
	tools  map[string]ai.Tool
	names  []string
	logger log.Logger
}

// Register defines all gateway tools with Genkit and returns the registry.
func Register(cfg Config) (*Registry, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.Generate == nil {
		return nil, errors.New("text generator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 20 * time.Second
	}

	r := &Registry{
		tools:  make(map[string]ai.Tool),
		logger: logger,
	}

	validator := security.NewURL()
	scraper := &scraper{
		validator: validator,
		client:    validator.SafeClient(fetchTimeout),
	}

	r.add(registerSchedulingTool(cfg.Genkit, cfg.SchedulingURL))
	r.add(registerQuickWinTool(cfg.Genkit, scraper, cfg.Generate, logger))

	logger.Info("tools registered", "count", len(r.tools), "tools", r.names)
	return r, nil
}

func (r *Registry) add(t ai.Tool) {
	r.tools[t.Name()] = t
	r.names = append(r.names, t.Name())
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// ForTenant resolves a tenant's tool selection to tool refs. An empty
// selection means the full registry. Unknown names are skipped with a
// warning rather than failing the turn.
func (r *Registry) ForTenant(selection []string) []ai.ToolRef {
	if len(selection) == 0 {
		selection = r.names
	}

	refs := make([]ai.ToolRef, 0, len(selection))
	for _, name := range selection {
		t, ok := r.tools[name]
		if !ok {
			r.logger.Warn("tenant references unknown tool", "tool", name)
			continue
		}
		refs = append(refs, t)
	}
	return refs
}
