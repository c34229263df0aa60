// Package llm provides a client for OpenAI-compatible chat completion gateways such as OpenRouter.
package llm

import (
	"strings"
	"time"
)

// Default gateway settings.
const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultReferer     = "https://phoenix-content-pipeline.com"
	DefaultTitle       = "AI Content Pipeline"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// GatewayConfig holds the connection settings for the chat completion gateway
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	// Referer and Title are sent as HTTP-Referer and X-Title for gateway attribution.
	Referer string
	Title   string
	Timeout time.Duration
}

// DefaultGatewayConfig returns the OpenRouter defaults with the given API key
func DefaultGatewayConfig(apiKey string) GatewayConfig {
	return GatewayConfig{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Referer: DefaultReferer,
		Title:   DefaultTitle,
		Timeout: DefaultTimeout,
	}
}

// withDefaults fills empty fields with defaults and trims the base URL
func (c GatewayConfig) withDefaults() GatewayConfig {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Referer == "" {
		c.Referer = DefaultReferer
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Endpoint returns the chat completions URL
func (c GatewayConfig) Endpoint() string {
	return c.withDefaults().BaseURL + "/chat/completions"
}
