// Package config provides settings loading and validation for the content API.
//
// Settings are resolved in three layers: built-in defaults, an optional YAML
// file, then environment variables. The result is validated before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Settings holds the runtime configuration of the service.
type Settings struct {
	AppName    string `yaml:"app_name" validate:"required"`
	AppVersion string `yaml:"app_version" validate:"required"`
	Debug      bool   `yaml:"debug"`
	Port       int    `yaml:"port" validate:"min=1,max=65535"`

	DatabaseURL string `yaml:"database_url"`

	// Gateway
	OpenRouterAPIKey    string  `yaml:"openrouter_api_key"`
	OpenRouterBaseURL   string  `yaml:"openrouter_base_url" validate:"required,url"`
	HTTPReferer         string  `yaml:"http_referer"`
	AppTitle            string  `yaml:"app_title"`
	DefaultContentModel string  `yaml:"default_content_model" validate:"required"`
	DefaultTemperature  float64 `yaml:"default_temperature" validate:"gte=0,lte=2"`
	MaxTokens           int     `yaml:"max_tokens" validate:"min=1"`
	APITimeoutSeconds   int     `yaml:"api_timeout" validate:"min=1"`

	// Auth
	SecretKey                string `yaml:"secret_key"`
	AccessTokenExpireMinutes int    `yaml:"access_token_expire_minutes" validate:"min=1"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	LogMode          string `yaml:"log_mode"`
	RedisAddr        string `yaml:"redis_addr"`
	RateLimitEnabled bool   `yaml:"rate_limit_enabled"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		AppName:                  "AI-Enhanced Autonomous Content Pipeline API",
		AppVersion:               "1.0.0",
		Port:                     8080,
		OpenRouterBaseURL:        "https://openrouter.ai/api/v1",
		HTTPReferer:              "https://phoenix-content-pipeline.com",
		AppTitle:                 "AI Content Pipeline",
		DefaultContentModel:      "openai/gpt-4",
		DefaultTemperature:       0.7,
		MaxTokens:                1000,
		APITimeoutSeconds:        30,
		AccessTokenExpireMinutes: 30,
		AllowedOrigins:           []string{"http://localhost:3000", "http://localhost:3001"},
		LogMode:                  "development",
		RateLimitEnabled:         true,
	}
}

// Load resolves settings from defaults, the YAML file at path (or CONFIG_FILE
// when path is empty) and the environment, then validates them.
func Load(path string) (*Settings, error) {
	s := Defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := s.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := s.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) loadFile(path string) error {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (s *Settings) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"APP_NAME":              &s.AppName,
		"APP_VERSION":           &s.AppVersion,
		"DATABASE_URL":          &s.DatabaseURL,
		"OPENROUTER_API_KEY":    &s.OpenRouterAPIKey,
		"OPENROUTER_BASE_URL":   &s.OpenRouterBaseURL,
		"OPENROUTER_REFERER":    &s.HTTPReferer,
		"OPENROUTER_TITLE":      &s.AppTitle,
		"DEFAULT_CONTENT_MODEL": &s.DefaultContentModel,
		"SECRET_KEY":            &s.SecretKey,
		"LOG_MODE":              &s.LogMode,
		"REDIS_ADDR":            &s.RedisAddr,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"PORT":                        &s.Port,
		"MAX_TOKENS":                  &s.MaxTokens,
		"API_TIMEOUT":                 &s.APITimeoutSeconds,
		"ACCESS_TOKEN_EXPIRE_MINUTES": &s.AccessTokenExpireMinutes,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"DEBUG":              &s.Debug,
		"RATE_LIMIT_ENABLED": &s.RateLimitEnabled,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
	}

	if v, ok := lookup("DEFAULT_TEMPERATURE"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid DEFAULT_TEMPERATURE: %w", err)
		}
		s.DefaultTemperature = f
	}

	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		s.AllowedOrigins = splitList(v)
	}
	return nil
}

// Validate checks field ranges and the database URL scheme.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' validation", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if s.DatabaseURL != "" && !supportedDatabaseURL(s.DatabaseURL) {
		return fmt.Errorf("config error: database_url must start with postgres://, postgresql:// or sqlite:")
	}
	return nil
}

// RequireDatabase reports an error when no database URL is configured.
func (s *Settings) RequireDatabase() error {
	if s.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	return nil
}

// RequireGateway reports an error when no gateway API key is configured.
func (s *Settings) RequireGateway() error {
	if s.OpenRouterAPIKey == "" {
		return fmt.Errorf("config error: OPENROUTER_API_KEY is required")
	}
	return nil
}

// APITimeout is the gateway request timeout.
func (s *Settings) APITimeout() time.Duration {
	return time.Duration(s.APITimeoutSeconds) * time.Second
}

// Addr is the HTTP listen address.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func supportedDatabaseURL(u string) bool {
	for _, prefix := range []string{"postgres://", "postgresql://", "sqlite:"} {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
