package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// redisTimeout bounds each Redis round trip.
const redisTimeout = 2 * time.Second

// RedisBackend counts requests in fixed windows shared by every instance
// using the same Redis. Redis failures deny the request.
type RedisBackend struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisBackend creates a backend on an existing client.
func NewRedisBackend(client *redis.Client, prefix string) (*RedisBackend, error) {
	if client == nil {
		return nil, errors.New("rate limiter redis client is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultConfig().RedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix, now: time.Now}, nil
}

// NewRedisLimiter creates a limiter backed by the Redis server at addr.
func NewRedisLimiter(config *Config, addr, password string) (*Limiter, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	backend, err := NewRedisBackend(redis.NewClient(&redis.Options{Addr: addr, Password: password}), config.RedisPrefix)
	if err != nil {
		return nil, err
	}
	return NewLimiterWithBackend(config, backend), nil
}

// Take increments the key's counter for the current window.
func (b *RedisBackend) Take(ctx context.Context, key string, endpoint EndpointConfig) Info {
	now := b.now().UTC()
	windowMs := endpoint.Window.Milliseconds()
	slot := now.UnixMilli() / windowMs
	resetTime := time.UnixMilli((slot + 1) * windowMs).UTC()
	info := Info{Limit: endpoint.Limit, ResetTime: resetTime}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	redisKey := fmt.Sprintf("%s:%s:%d", b.prefix, key, slot)
	count, err := fixedWindowScript.Run(ctx, b.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		info.RetryAfter = resetTime.Sub(now)
		return info
	}

	info.Allowed = count <= int64(endpoint.Limit)
	if remaining := int64(endpoint.Limit) - count; remaining > 0 {
		info.Remaining = int(remaining)
	}
	if !info.Allowed {
		info.RetryAfter = resetTime.Sub(now)
	}
	return info
}

// Stop closes the Redis client.
func (b *RedisBackend) Stop() {
	_ = b.client.Close()
}
