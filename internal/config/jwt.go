package config

import (
	"fmt"
	"time"
)

// JWTConfig holds configuration for bearer token signing and validation.
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
}

// JWT returns the token configuration, or nil when SECRET_KEY is unset and
// authentication is disabled.
func (s *Settings) JWT() (*JWTConfig, error) {
	if s.SecretKey == "" {
		return nil, nil
	}
	cfg := &JWTConfig{
		Secret:        s.SecretKey,
		ExpireMinutes: s.AccessTokenExpireMinutes,
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TTL is the lifetime of newly issued tokens.
func (c *JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpireMinutes) * time.Minute
}

func (c *JWTConfig) normalize() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("SECRET_KEY must be at least 16 characters")
	}
	if c.ExpireMinutes < 1 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be at least 1 minute, got: %d", c.ExpireMinutes)
	}
	return nil
}
