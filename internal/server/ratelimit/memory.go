package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketIdleTTL is how long an unused bucket is kept.
const bucketIdleTTL = time.Hour

type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// memoryBackend keeps one token bucket per key.
type memoryBackend struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	stopOnce      sync.Once
}

func newMemoryBackend(cleanupInterval time.Duration, startCleanup bool) *memoryBackend {
	b := &memoryBackend{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	if startCleanup && cleanupInterval > 0 {
		b.cleanupTicker = time.NewTicker(cleanupInterval)
		b.cleanupStop = make(chan struct{})
		go b.cleanup()
	}
	return b
}

// Take consumes one token from the key's bucket.
func (b *memoryBackend) Take(_ context.Context, key string, endpoint EndpointConfig) Info {
	now := b.now()
	perSecond := float64(endpoint.Limit) / endpoint.Window.Seconds()
	capacity := endpoint.burst()

	b.mu.Lock()
	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(rate.Limit(perSecond), capacity)}
		b.buckets[key] = bk
	}
	bk.lastAccess = now
	b.mu.Unlock()

	allowed := bk.limiter.AllowN(now, 1)
	tokens := bk.limiter.TokensAt(now)

	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	resetTime := now
	if missing := float64(capacity) - tokens; missing > 0 {
		resetTime = now.Add(secondsToDuration(missing / perSecond))
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = secondsToDuration((1 - tokens) / perSecond)
	}

	return Info{
		Allowed:    allowed,
		Limit:      endpoint.Limit,
		Remaining:  remaining,
		ResetTime:  resetTime,
		RetryAfter: retryAfter,
	}
}

func (b *memoryBackend) cleanup() {
	for {
		select {
		case <-b.cleanupTicker.C:
			b.cleanupBuckets()
		case <-b.cleanupStop:
			return
		}
	}
}

// cleanupBuckets removes buckets that have been idle longer than bucketIdleTTL.
func (b *memoryBackend) cleanupBuckets() {
	cutoff := b.now().Add(-bucketIdleTTL)

	b.mu.Lock()
	defer b.mu.Unlock()
	for key, bk := range b.buckets {
		if bk.lastAccess.Before(cutoff) {
			delete(b.buckets, key)
		}
	}
}

func (b *memoryBackend) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buckets)
}

// Stop stops the cleanup goroutine.
func (b *memoryBackend) Stop() {
	b.stopOnce.Do(func() {
		if b.cleanupTicker != nil {
			b.cleanupTicker.Stop()
		}
		if b.cleanupStop != nil {
			close(b.cleanupStop)
		}
	})
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
