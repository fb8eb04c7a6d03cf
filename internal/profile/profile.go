// Package profile holds the runtime configuration for the companion server.
package profile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the companion server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the gateway
	Addr string
	// Port is the binding port for the gateway
	Port int
	// Data is the data directory
	Data string
	// DSN points to where companion stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the server
	Version string

	// DefaultTimezone is used when a user has no stored timezone or an
	// invalid one. IANA identifier.
	DefaultTimezone string

	// AI configuration. The backend is any OpenAI-compatible endpoint.
	AIAPIKey         string // COMPANION_AI_API_KEY
	AIBaseURL        string // COMPANION_AI_BASE_URL (default: https://api.openai.com/v1)
	AIChatModel      string // COMPANION_AI_CHAT_MODEL (default: gpt-4o-mini)
	AIEmbeddingModel string // COMPANION_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AITimeoutSeconds int    // COMPANION_AI_TIMEOUT_SECONDS (default: 30)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true when a generative backend is configured: either
// an API key is set or a non-default base URL is given (ollama-style
// endpoints need no key).
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != "" || (p.AIBaseURL != "" && p.AIBaseURL != "https://api.openai.com/v1")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from COMPANION_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("COMPANION_MODE", p.Mode)
	p.Addr = getEnvOrDefault("COMPANION_ADDR", p.Addr)
	if v := os.Getenv("COMPANION_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			p.Port = port
		}
	}
	p.Data = getEnvOrDefault("COMPANION_DATA", p.Data)
	p.DSN = getEnvOrDefault("COMPANION_DSN", p.DSN)
	p.Driver = getEnvOrDefault("COMPANION_DRIVER", p.Driver)
	p.DefaultTimezone = getEnvOrDefault("COMPANION_DEFAULT_TIMEZONE", p.DefaultTimezone)

	p.AIAPIKey = getEnvOrDefault("COMPANION_AI_API_KEY", p.AIAPIKey)
	p.AIBaseURL = getEnvOrDefault("COMPANION_AI_BASE_URL", p.AIBaseURL)
	p.AIChatModel = getEnvOrDefault("COMPANION_AI_CHAT_MODEL", p.AIChatModel)
	p.AIEmbeddingModel = getEnvOrDefault("COMPANION_AI_EMBEDDING_MODEL", p.AIEmbeddingModel)
	if v := os.Getenv("COMPANION_AI_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.AITimeoutSeconds = n
		}
	}
}

// Validate normalizes the profile and fills defaults.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}
	if p.Port == 0 {
		p.Port = 8231
	}
	if p.Data == "" {
		p.Data = "."
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	p.Driver = strings.ToLower(p.Driver)
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only sqlite and postgres are supported", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = fmt.Sprintf("%s/companion_%s.db", p.Data, p.Mode)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}
	if p.DefaultTimezone == "" {
		p.DefaultTimezone = "Asia/Taipei"
	}
	if p.AIBaseURL == "" {
		p.AIBaseURL = "https://api.openai.com/v1"
	}
	if p.AIChatModel == "" {
		p.AIChatModel = "gpt-4o-mini"
	}
	if p.AIEmbeddingModel == "" {
		p.AIEmbeddingModel = "text-embedding-3-small"
	}
	if p.AITimeoutSeconds <= 0 {
		p.AITimeoutSeconds = 30
	}
	return nil
}
