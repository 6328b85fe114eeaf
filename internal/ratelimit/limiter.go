// Package ratelimit provides rate limiting for API calls using a token
// bucket algorithm.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Free-tier dashboard deployments behind a tunnel throttle aggressively;
// 4 req/sec with a burst of 20 stays well under what the proxy tolerates.
const (
	DefaultRatePerSec    = 4.0
	DefaultBurstCapacity = 20.0
)

// Limiter implements a token bucket rate limiter. It allows bursts up to
// the bucket capacity, then refills at a fixed rate per second.
type Limiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewLimiter creates a limiter adding tokensPerSecond tokens up to burstSize.
// The bucket starts full.
func NewLimiter(tokensPerSecond, burstSize float64) *Limiter {
	return &Limiter{
		tokens:     burstSize,
		maxTokens:  burstSize,
		refillRate: tokensPerSecond,
		lastRefill: time.Now(),
	}
}

// NewAPILimiter creates the limiter used for dashboard API requests.
func NewAPILimiter() *Limiter {
	return NewLimiter(DefaultRatePerSec, DefaultBurstCapacity)
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.tryAcquire() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.timeUntilNextToken()):
		}
	}
}

// tryAcquire attempts to consume one token without blocking.
func (l *Limiter) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens += elapsed * l.refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return true
	}
	return false
}

// timeUntilNextToken calculates the wait until at least one token exists.
func (l *Limiter) timeUntilNextToken() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	needed := 1.0 - l.tokens
	if needed <= 0 {
		return 0
	}
	return time.Duration(needed / l.refillRate * float64(time.Second))
}

// Tokens returns the current token count, refilled to now.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	tokens := l.tokens + time.Since(l.lastRefill).Seconds()*l.refillRate
	if tokens > l.maxTokens {
		tokens = l.maxTokens
	}
	return tokens
}
