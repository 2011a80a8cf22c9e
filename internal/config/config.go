// Package config provides gateway configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, PARAKEET_ prefix plus DATABASE_URL)
//  2. Config file (./parakeet.yaml or /etc/parakeet/parakeet.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Server: listen address, rate limiting, proxy trust
//   - AI: provider, model selection, fast model for suggestions
//   - Storage: PostgreSQL connection (see storage.go)
//   - Admin: admin API key, dev mode
//   - Public URLs: base URLs used to build share links and embed snippets
//
// Security: Sensitive data (passwords, admin key) are never logged.
// Validation: range checks in validation.go with sentinel errors.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidListenAddr indicates the listen address is invalid.
	ErrInvalidListenAddr = errors.New("invalid listen address")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidPublicURL indicates a public base URL is malformed.
	ErrInvalidPublicURL = errors.New("invalid public URL")

	// ErrInvalidRateLimit indicates the rate limit settings are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrMissingAdminKey indicates no admin API key is configured outside dev mode.
	ErrMissingAdminKey = errors.New("missing admin API key")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Config stores gateway configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Server configuration
	ListenAddr     string `mapstructure:"listen_addr" json:"listen_addr"`
	TrustProxy     bool   `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For headers (set true behind reverse proxy)
	RateLimitRPS   int    `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int    `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// AI provider and model configuration
	Provider  string `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama", "openai"
	ModelName string `mapstructure:"model_name" json:"model_name"` // Model identifier (e.g., "gemini-2.5-flash", "llama3.3", "gpt-4o")
	// FastModelName is used for cheap auxiliary calls (follow-up suggestions).
	FastModelName string  `mapstructure:"fast_model_name" json:"fast_model_name"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxSteps      int     `mapstructure:"max_steps" json:"max_steps"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Admin surface
	AdminAPIKey string `mapstructure:"admin_api_key" json:"admin_api_key"` // SENSITIVE: masked in MarshalJSON
	DevMode     bool   `mapstructure:"dev_mode" json:"dev_mode"`

	// Public base URLs used to build share links and embed snippets
	PublicAPIURL  string `mapstructure:"public_api_url" json:"public_api_url"`
	PublicCDNURL  string `mapstructure:"public_cdn_url" json:"public_cdn_url"`
	HomepageURL   string `mapstructure:"homepage_url" json:"homepage_url"`
	SchedulingURL string `mapstructure:"scheduling_url" json:"scheduling_url"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug, info, warn, error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("parakeet")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/parakeet")

	setDefaults(v)

	// Bind environment variables: PARAKEET_LISTEN_ADDR, PARAKEET_ADMIN_API_KEY, ...
	v.SetEnvPrefix("PARAKEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"config_name", "parakeet.yaml")
	}

	// Use Unmarshal to automatically map to struct (type-safe)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, wins over the individual postgres_* fields.
	if err := cfg.applyDatabaseURL(os.Getenv("DATABASE_URL")); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("listen_addr", "localhost:8080")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_limit_rps", 10)
	v.SetDefault("rate_limit_burst", 30)

	// AI defaults
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("fast_model_name", "gemini-2.5-flash-lite")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_steps", 5)

	// Ollama defaults
	v.SetDefault("ollama_host", "http://localhost:11434")

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "parakeet")
	v.SetDefault("postgres_password", "parakeet_dev_password")
	v.SetDefault("postgres_db_name", "parakeet")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Admin defaults: no key, so the admin surface stays closed unless dev_mode
	v.SetDefault("admin_api_key", "")
	v.SetDefault("dev_mode", false)

	// Public URLs
	v.SetDefault("public_api_url", "http://localhost:8080")
	v.SetDefault("public_cdn_url", "http://localhost:8080/widget")
	v.SetDefault("homepage_url", "http://localhost:8080")
	v.SetDefault("scheduling_url", "")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", true)
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: For secrets <=8 chars, fully masks to prevent substring attacks.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - AdminAPIKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.AdminAPIKey = maskSecret(a.AdminAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// If name already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	return c.qualify(c.ModelName)
}

// FullFastModelName returns the provider-qualified fast model name,
// falling back to the primary model when unset.
func (c *Config) FullFastModelName() string {
	if c.FastModelName == "" {
		return c.FullModelName()
	}
	return c.qualify(c.FastModelName)
}

// QualifyModel provider-qualifies an arbitrary model name, such as a
// per-tenant override. Already-qualified names pass through unchanged.
func (c *Config) QualifyModel(name string) string {
	return c.qualify(name)
}

func (c *Config) qualify(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + name
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + name
	default:
		return ProviderGoogleAI + "/" + name
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
