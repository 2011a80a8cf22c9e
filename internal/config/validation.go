package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Server validation
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("%w: %q must be host:port: %v", ErrInvalidListenAddr, c.ListenAddr, err)
	}

	if c.RateLimitRPS < 1 || c.RateLimitRPS > 10000 {
		return fmt.Errorf("%w: rate_limit_rps must be between 1 and 10000, got %d", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.RateLimitBurst < c.RateLimitRPS {
		return fmt.Errorf("%w: rate_limit_burst (%d) must be >= rate_limit_rps (%d)",
			ErrInvalidRateLimit, c.RateLimitBurst, c.RateLimitRPS)
	}

	// 2. Provider and model validation
	validProviders := []string{ProviderGemini, ProviderOllama, ProviderOpenAI}
	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v", ErrInvalidProvider, c.Provider, validProviders)
	}

	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required", ErrMissingAPIKey)
		}
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: temperature must be between 0.0 and 2.0, got %.2f", ErrInvalidModelName, c.Temperature)
	}

	if c.MaxSteps < 1 || c.MaxSteps > 25 {
		return fmt.Errorf("%w: max_steps must be between 1 and 25, got %d", ErrInvalidModelName, c.MaxSteps)
	}

	// 3. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}

	// Warn if using the default dev password (but don't block - user might be in dev)
	if c.PostgresPassword == "parakeet_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password for production deployments")
	}

	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// 4. Admin surface: fail-closed outside dev mode. A missing key is not an
	// error at load time (the gateway can run admin-less), but warn loudly.
	if c.AdminAPIKey == "" && !c.DevMode {
		slog.Warn("No admin_api_key configured; all /admin/v1 requests will be rejected")
	}

	// 5. Public URL validation
	for name, raw := range map[string]string{
		"public_api_url": c.PublicAPIURL,
		"public_cdn_url": c.PublicCDNURL,
		"homepage_url":   c.HomepageURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s %q must be an absolute http(s) URL", ErrInvalidPublicURL, name, raw)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: %s %q must use http or https", ErrInvalidPublicURL, name, raw)
		}
	}

	// scheduling_url is optional (the scheduler tool is disabled without it)
	if c.SchedulingURL != "" {
		u, err := url.Parse(c.SchedulingURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: scheduling_url %q must be an absolute URL", ErrInvalidPublicURL, c.SchedulingURL)
		}
	}

	return nil
}
