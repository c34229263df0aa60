package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, "AI-Enhanced Autonomous Content Pipeline API", s.AppName)
	assert.Equal(t, 8080, s.Port)
	assert.Equal(t, "https://openrouter.ai/api/v1", s.OpenRouterBaseURL)
	assert.Equal(t, "openai/gpt-4", s.DefaultContentModel)
	assert.Equal(t, 0.7, s.DefaultTemperature)
	assert.Equal(t, 1000, s.MaxTokens)
	assert.Equal(t, 30*time.Second, s.APITimeout())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, s.AllowedOrigins)
	assert.True(t, s.RateLimitEnabled)
	assert.NoError(t, s.Validate())
}

func TestApplyEnv(t *testing.T) {
	s := Defaults()
	err := s.applyEnv(envMap(map[string]string{
		"PORT":                "9090",
		"DEBUG":               "true",
		"DATABASE_URL":        "sqlite::memory:",
		"OPENROUTER_API_KEY":  " sk-test ",
		"DEFAULT_TEMPERATURE": "1.2",
		"ALLOWED_ORIGINS":     "https://a.example, ,https://b.example",
		"RATE_LIMIT_ENABLED":  "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, s.Port)
	assert.True(t, s.Debug)
	assert.Equal(t, "sqlite::memory:", s.DatabaseURL)
	assert.Equal(t, "sk-test", s.OpenRouterAPIKey)
	assert.Equal(t, 1.2, s.DefaultTemperature)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.AllowedOrigins)
	assert.False(t, s.RateLimitEnabled)
	assert.Equal(t, ":9090", s.Addr())
}

func TestApplyEnv_InvalidNumber(t *testing.T) {
	s := Defaults()
	err := s.applyEnv(envMap(map[string]string{"MAX_TOKENS": "lots"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid MAX_TOKENS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"temperature too high", func(s *Settings) { s.DefaultTemperature = 2.5 }, "DefaultTemperature"},
		{"negative temperature", func(s *Settings) { s.DefaultTemperature = -0.1 }, "DefaultTemperature"},
		{"port out of range", func(s *Settings) { s.Port = 70000 }, "Port"},
		{"zero max tokens", func(s *Settings) { s.MaxTokens = 0 }, "MaxTokens"},
		{"bad database scheme", func(s *Settings) { s.DatabaseURL = "mysql://localhost" }, "database_url"},
		{"postgres ok", func(s *Settings) { s.DatabaseURL = "postgresql://u:p@localhost/db" }, ""},
		{"temperature bound ok", func(s *Settings) { s.DefaultTemperature = 2.0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_YAMLFileWithEnvOverride(t *testing.T) {
	content := `
app_name: Staging Content API
port: 9000
default_content_model: anthropic/claude-3-haiku
max_tokens: 500
allowed_origins:
  - https://app.example.com
`
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("PORT", "9100")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Staging Content API", s.AppName)
	assert.Equal(t, 9100, s.Port)
	assert.Equal(t, "anthropic/claude-3-haiku", s.DefaultContentModel)
	assert.Equal(t, 500, s.MaxTokens)
	assert.Equal(t, "1.0.0", s.AppVersion)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not an int"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/settings.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestRequireDatabaseAndGateway(t *testing.T) {
	s := Defaults()
	assert.Error(t, s.RequireDatabase())
	assert.Error(t, s.RequireGateway())

	s.DatabaseURL = "sqlite:content.db"
	s.OpenRouterAPIKey = "sk-test"
	assert.NoError(t, s.RequireDatabase())
	assert.NoError(t, s.RequireGateway())
}

func TestJWT(t *testing.T) {
	s := Defaults()

	cfg, err := s.JWT()
	require.NoError(t, err)
	assert.Nil(t, cfg, "auth is disabled without a secret")

	s.SecretKey = "short"
	_, err = s.JWT()
	assert.Error(t, err)

	s.SecretKey = "a-sufficiently-long-secret"
	s.AccessTokenExpireMinutes = 45
	cfg, err = s.JWT()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 45*time.Minute, cfg.TTL())
}
