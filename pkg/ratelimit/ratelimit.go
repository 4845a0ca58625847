// Package ratelimit wraps golang.org/x/time/rate for per-route limiting.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a token-bucket limiter for one route category.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter allowing requestsPerSecond with an equal burst.
func NewLimiter(requestsPerSecond int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Allow reports whether a request can proceed without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Wait blocks until the limiter admits a request or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// PerRoute manages one limiter per route category (e.g. "history", "stream").
type PerRoute struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewPerRoute creates a category-keyed limiter set.
func NewPerRoute(limiters map[string]*Limiter) *PerRoute {
	if limiters == nil {
		limiters = make(map[string]*Limiter)
	}
	return &PerRoute{limiters: limiters}
}

// Allow reports whether a request for the category can proceed. Unknown
// categories are rejected.
func (p *PerRoute) Allow(category string) bool {
	p.mu.RLock()
	limiter, ok := p.limiters[category]
	p.mu.RUnlock()

	if !ok {
		return false
	}
	return limiter.Allow()
}

// Wait blocks until the category's limiter admits a request.
func (p *PerRoute) Wait(ctx context.Context, category string) error {
	p.mu.RLock()
	limiter, ok := p.limiters[category]
	p.mu.RUnlock()

	if !ok {
		return ErrCategoryNotFound
	}
	return limiter.Wait(ctx)
}

// Add registers a limiter for a category.
func (p *PerRoute) Add(category string, limiter *Limiter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiters[category] = limiter
}

// ErrCategoryNotFound is returned when no limiter exists for a category.
var ErrCategoryNotFound = &Error{message: "ratelimit: category not found"}

// Error represents a rate limiting error.
type Error struct {
	message string
}

func (e *Error) Error() string {
	return e.message
}
