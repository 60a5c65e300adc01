package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/farcall/farcall/internal/observability"
)

// Config sizes the limiter.
type Config struct {
	// Tokens is the number of calls each (caller, service) pair may make per
	// interval.
	Tokens int
	// Interval is the refill period.
	Interval time.Duration
	// MaxKeys bounds the number of tracked pairs; least recently seen pairs
	// are evicted. 0 means unbounded.
	MaxKeys int
	// Backlog is the observation channel depth.
	Backlog int
}

func DefaultConfig() Config {
	return Config{
		Tokens:   1000,
		Interval: time.Second,
		MaxKeys:  4096,
		Backlog:  1024,
	}
}

type observation struct {
	caller  string
	service string
}

// Limiter throttles inbound calls per (caller, service) pair. It holds a
// bounded cache of token buckets refilled on a periodic reset; observations
// arrive over a channel and are applied by the run loop.
type Limiter struct {
	mu    sync.Mutex
	cache *bucketCache
	cfg   Config
	obs   chan observation
}

func New(cfg Config) *Limiter {
	if cfg.Tokens <= 0 {
		cfg.Tokens = DefaultConfig().Tokens
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultConfig().Backlog
	}
	return &Limiter{
		cache: newBucketCache(cfg.MaxKeys),
		cfg:   cfg,
		obs:   make(chan observation, cfg.Backlog),
	}
}

// Observe records one inbound call for the pair without blocking the frame
// path. Observations are dropped when the backlog is full.
func (l *Limiter) Observe(caller, service string) {
	select {
	case l.obs <- observation{caller: caller, service: service}:
	default:
		observability.RecordRateLimitDrop()
	}
}

// Allow consumes one token for the pair and reports whether the call is
// within quota this interval.
func (l *Limiter) Allow(caller, service string) bool {
	allowed := l.take(key(caller, service))
	observability.RecordRateLimitVerdict(allowed)
	return allowed
}

// Reset refills every tracked bucket immediately.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.reset(l.cfg.Tokens)
}

// Keys returns the number of tracked pairs.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.len()
}

// Run drains observations and drives the periodic reset until ctx ends.
func (l *Limiter) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case o := <-l.obs:
				allowed := l.take(key(o.caller, o.service))
				observability.RecordRateLimitVerdict(allowed)
			}
		}
	})
	g.Go(func() error {
		ticker := time.NewTicker(l.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				l.Reset()
			}
		}
	})
	return g.Wait()
}

func (l *Limiter) take(k string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.cache.get(k)
	if !ok {
		b = l.cache.set(k, l.cfg.Tokens)
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func key(caller, service string) string {
	return caller + ":" + service
}
