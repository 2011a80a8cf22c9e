// Package tenant manages tenant records and the domain allow-list that
// authorizes embedded widgets to talk to the gateway.
//
// A tenant is an organization with an embeddable widget. Each tenant carries:
//   - an allow-list of browser domains its widget may be served from
//   - an agent configuration (system prompt, instructions, model, tools)
//   - a UI configuration handed to the widget at boot
package tenant

import (
	"net/url"
	"strings"
	"time"
)

// Tenant is a registered organization.
type Tenant struct {
	ID             string
	Name           string
	AllowedDomains []string
	Active         bool
	AgentConfig    *AgentConfig
	UIConfig       *UIConfig
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AgentConfig drives the chat orchestrator for a tenant.
type AgentConfig struct {
	SystemPrompt string   `json:"systemPrompt"`
	Instructions []string `json:"instructions,omitempty"`
	// Model overrides the gateway default when set (unqualified name).
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxSteps    int      `json:"maxSteps,omitempty"`
	Tools       []string `json:"tools,omitempty"`
	// SchedulingURL is the calendar link surfaced by the scheduler tool.
	SchedulingURL string `json:"schedulingUrl,omitempty"`
}

// UIConfig is served to the widget at boot.
type UIConfig struct {
	ThemeColor  string   `json:"themeColor,omitempty"`
	Position    string   `json:"position,omitempty"`
	Title       string   `json:"title,omitempty"`
	Greeting    string   `json:"greeting,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Hostname extracts the hostname from an Origin or Referer header value.
// Values that do not parse as a URL are treated as a literal hostname,
// so both "https://app.acme.com:8443/x" and "app.acme.com" resolve to
// "app.acme.com".
func Hostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	// Bare hostnames ("app.acme.com", "app.acme.com:8443") parse as a URL
	// path or scheme, so force an authority component first.
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "//" + candidate
	}
	if u, err := url.Parse(candidate); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(raw)
}

// MatchDomain reports whether host is covered by the allow-list.
//
// Rules:
//   - comparison is case-insensitive
//   - an exact entry matches only itself
//   - a wildcard entry "*.base" matches base itself and any subdomain of
//     base ("*.acme.com" covers "acme.com", "app.acme.com", "a.b.acme.com"
//     but never "acme.com.evil.io")
//   - an empty allow-list matches nothing
func MatchDomain(allowed []string, host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}

	for _, entry := range allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if base, ok := strings.CutPrefix(entry, "*."); ok {
			if host == base || strings.HasSuffix(host, "."+base) {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}
