package ratelimit

import (
	"sync"
	"time"

	"github.com/bedrock-cadence/transport-portal/internal/clock"
)

// Limiter decides whether the caller behind key may proceed.
// When it may not, wait is how long until its next request would pass.
type Limiter interface {
	Allow(key string) (ok bool, wait time.Duration)
}

// NopLimiter lets everything through.
type NopLimiter struct{}

// Allow always allows.
func (NopLimiter) Allow(string) (bool, time.Duration) { return true, 0 }

// Config stores TokenBucketLimiter settings.
type Config struct {
	Rate       float64       // tokens per second
	Burst      int           // bucket capacity
	TTL        time.Duration // idle buckets older than this are dropped, 0 keeps them
	MaxBuckets int           // 0 is unbounded
}

// TokenBucketLimiter keeps one token bucket per caller key.
// When MaxBuckets is reached the longest idle bucket gives way to the new key.
type TokenBucketLimiter struct {
	mu        sync.Mutex
	cfg       Config
	clock     clock.Clock
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens  float64
	updated time.Time
}

// NewTokenBucketLimiter creates a limiter reading time from clk.
func NewTokenBucketLimiter(clk clock.Clock, cfg Config) *TokenBucketLimiter {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxBuckets < 0 {
		cfg.MaxBuckets = 0
	}
	return &TokenBucketLimiter{
		cfg:     cfg,
		clock:   clk,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token from key's bucket.
func (l *TokenBucketLimiter) Allow(key string) (bool, time.Duration) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		if l.cfg.MaxBuckets > 0 && len(l.buckets) >= l.cfg.MaxBuckets {
			l.evictIdlest()
		}
		b = &bucket{tokens: float64(l.cfg.Burst), updated: now}
		l.buckets[key] = b
	}

	if dt := now.Sub(b.updated); dt > 0 {
		b.tokens = min(b.tokens+dt.Seconds()*l.cfg.Rate, float64(l.cfg.Burst))
	}
	b.updated = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	missing := 1 - b.tokens
	return false, time.Duration(missing / l.cfg.Rate * float64(time.Second))
}

func (l *TokenBucketLimiter) sweep(now time.Time) {
	if l.cfg.TTL <= 0 || now.Sub(l.lastSweep) < l.cfg.TTL {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.updated) > l.cfg.TTL {
			delete(l.buckets, k)
		}
	}
}

// evictIdlest is linear in the bucket count; it only runs when the map is full.
func (l *TokenBucketLimiter) evictIdlest() {
	var (
		victim string
		oldest time.Time
	)
	for k, b := range l.buckets {
		if victim == "" || b.updated.Before(oldest) {
			victim, oldest = k, b.updated
		}
	}
	delete(l.buckets, victim)
}

// Len reports how many buckets are tracked.
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
