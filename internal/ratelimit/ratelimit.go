package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements a token bucket rate limiter shared by the wallet scan
// workers so a batch of concurrent fetches stays under the provider's limit
type Limiter struct {
	rate       float64 // tokens per second
	tokens     float64
	maxTokens  float64
	lastUpdate time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// New creates a new rate limiter with the specified rate (requests per second)
// and burst size. A burst below one defaults to one second's worth of tokens.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	maxTokens := float64(burst)
	if burst < 1 {
		maxTokens = rps
	}
	return &Limiter{
		rate:       rps,
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		lastUpdate: time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a token is available or context is cancelled
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Allow takes a token if one is available without blocking
func (l *Limiter) Allow() bool {
	return l.reserve() == 0
}

// reserve takes a token and returns 0, or returns how long until one is due
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(l.lastUpdate).Seconds()

	// Add tokens based on elapsed time
	l.tokens += elapsed * l.rate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastUpdate = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return 0
	}

	missing := 1.0 - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second))
}
