package config

import (
	"fmt"
	"strings"
	"time"
)

// Generator providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// AIConfig holds all message-generation provider configuration
type AIConfig struct {
	Provider string `json:"provider"`

	APIKey  string `json:"-"` // Never serialize
	BaseURL string `json:"baseUrl"`
	Model   string `json:"model"`

	OpenAIKey     string `json:"-"`
	OpenAIBaseURL string `json:"openaiBaseUrl,omitempty"`
	OpenAIModel   string `json:"openaiModel"`

	TimeoutMS     int     `json:"timeoutMs"`
	MaxRPS        float64 `json:"maxRps"`
	CannedMessage string  `json:"cannedMessage,omitempty"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		Provider:    ProviderGemini,
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta/models",
		Model:       "gemini-2.0-flash",
		OpenAIModel: "gpt-4o-mini",
		TimeoutMS:   10000, // 10 second default timeout
		CannedMessage: "Hi {name}, this is a test-mode nudge. Keep going, " +
			"you are closer to finishing than you think.",
	}
}

func aiConfigFrom(env *envReader) *AIConfig {
	c := DefaultAIConfig()
	c.Provider = strings.ToLower(env.String("GENERATOR_PROVIDER", c.Provider))
	c.APIKey = env.String("GEMINI_API_KEY", "")
	c.BaseURL = env.String("GEMINI_BASE_URL", c.BaseURL)
	c.Model = env.String("GEMINI_MODEL", c.Model)
	c.OpenAIKey = env.String("OPENAI_API_KEY", "")
	c.OpenAIBaseURL = env.String("OPENAI_BASE_URL", "")
	c.OpenAIModel = env.String("OPENAI_MODEL", c.OpenAIModel)
	c.TimeoutMS = env.Int("GENERATION_TIMEOUT_SECONDS", c.TimeoutMS/1000) * 1000
	c.MaxRPS = env.Float("GENERATOR_MAX_RPS", 0)
	c.CannedMessage = env.String("CANNED_MESSAGE", c.CannedMessage)
	return c
}

// IsEnabled returns true if the selected provider has credentials
func (c *AIConfig) IsEnabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIKey != ""
	default:
		return c.APIKey != ""
	}
}

// ModelEndpoint returns the full Gemini endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + model + ":generateContent"
}

// Timeout returns the per-attempt generation timeout
func (c *AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Validate checks the provider settings
func (c *AIConfig) Validate() error {
	if c.Provider != ProviderGemini && c.Provider != ProviderOpenAI {
		return fmt.Errorf("GENERATOR_PROVIDER must be %s or %s, got %q", ProviderGemini, ProviderOpenAI, c.Provider)
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxRPS < 0 {
		return fmt.Errorf("GENERATOR_MAX_RPS must not be negative")
	}
	return nil
}
