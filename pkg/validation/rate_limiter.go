package validation

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket per client. Each bucket holds up to
// maxRequests tokens and refills continuously over window.
type RateLimiter struct {
	maxRequests float64
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing maxRequests per window per client
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxRequests: float64(maxRequests),
		window:      window,
		now:         time.Now,
		buckets:     make(map[string]*bucket),
		cleanupTick: time.NewTicker(window),
		done:        make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow takes one token from clientID's bucket if one is available
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[clientID]
	if !ok {
		b = &bucket{tokens: rl.maxRequests, lastSeen: now}
		rl.buckets[clientID] = b
	}

	if elapsed := now.Sub(b.lastSeen); elapsed > 0 {
		b.tokens += rl.maxRequests * float64(elapsed) / float64(rl.window)
		if b.tokens > rl.maxRequests {
			b.tokens = rl.maxRequests
		}
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Clients returns the number of tracked buckets
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.evictIdle()
		case <-rl.done:
			return
		}
	}
}

// evictIdle drops buckets idle for two windows; they would be full anyway
func (rl *RateLimiter) evictIdle() {
	cutoff := rl.now().Add(-2 * rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, id)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.cleanupTick.Stop()
	})
}
