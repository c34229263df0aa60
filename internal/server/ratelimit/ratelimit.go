// Package ratelimit limits request rates per client and endpoint, in process
// with token buckets or across instances with Redis fixed windows.
package ratelimit

import (
	"context"
	"time"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Backend counts requests for one bucket key.
type Backend interface {
	Take(ctx context.Context, key string, endpoint EndpointConfig) Info
	Stop()
}

// Limiter applies the configured limits to requests.
type Limiter struct {
	config  *Config
	backend Backend
}

// NewLimiter creates an in-process limiter with the given configuration.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Limiter{config: config, backend: newMemoryBackend(config.CleanupInterval, config.Enabled)}
}

// NewLimiterWithBackend creates a limiter that counts through backend.
func NewLimiterWithBackend(config *Config, backend Backend) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Limiter{config: config, backend: backend}
}

// Allow checks if a request from the given client is allowed for the specified endpoint.
// Returns true if allowed, false if rate limited, along with rate limit information.
func (l *Limiter) Allow(ctx context.Context, clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	endpointConfig := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if endpointConfig == nil {
		endpointConfig = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}

	if endpointConfig.Limit <= 0 || endpointConfig.Window <= 0 {
		return true, Info{Allowed: true}
	}

	// Configured endpoints share one bucket per pattern; others are keyed by path
	pattern := endpointConfig.Path
	if pattern == "" {
		pattern = endpoint
	}
	key := clientID + ":" + pattern + ":" + method

	info := l.backend.Take(ctx, key, *endpointConfig)
	return info.Allowed, info
}

// Stop releases backend resources.
func (l *Limiter) Stop() {
	if l.backend != nil {
		l.backend.Stop()
	}
}
