package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter rate limiter в памяти процесса
type MemoryLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	config  *Config
	stopCh  chan struct{}
	closed  bool
}

type bucket struct {
	tokens   float64
	refillAt time.Time
	hits     []time.Time // метки запросов для sliding window
}

// NewMemoryLimiter создаёт limiter в памяти и запускает фоновую очистку
func NewMemoryLimiter(cfg *Config) *MemoryLimiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &MemoryLimiter{
		buckets: make(map[string]*bucket),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.AllowN(ctx, key, 1)
}

func (l *MemoryLimiter) AllowN(_ context.Context, key string, n int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false, ErrLimiterClosed
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens:   float64(l.config.Requests + l.config.BurstSize),
			refillAt: time.Now(),
		}
		l.buckets[key] = b
	}

	if l.config.Strategy == "token_bucket" {
		return l.takeTokens(b, n), nil
	}
	return l.takeWindow(b, n), nil
}

// takeTokens token bucket: токены восполняются пропорционально прошедшему времени
func (l *MemoryLimiter) takeTokens(b *bucket, n int) bool {
	now := time.Now()
	elapsed := now.Sub(b.refillAt)
	b.refillAt = now

	rate := float64(l.config.Requests) / l.config.Window.Seconds()
	b.tokens += elapsed.Seconds() * rate

	if limit := float64(l.config.Requests + l.config.BurstSize); b.tokens > limit {
		b.tokens = limit
	}

	if b.tokens < float64(n) {
		return false
	}
	b.tokens -= float64(n)
	return true
}

// takeWindow sliding window: считаются запросы за последнее окно
func (l *MemoryLimiter) takeWindow(b *bucket, n int) bool {
	now := time.Now()
	b.hits = pruneBefore(b.hits, now.Add(-l.config.Window))

	if len(b.hits)+n > l.config.Requests {
		return false
	}
	for i := 0; i < n; i++ {
		b.hits = append(b.hits, now)
	}
	return true
}

// pruneBefore отбрасывает метки старше границы окна
func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func (l *MemoryLimiter) Wait(ctx context.Context, key string) error {
	for {
		allowed, err := l.Allow(ctx, key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
	return nil
}

func (l *MemoryLimiter) GetInfo(_ context.Context, key string) (*LimitInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	info := &LimitInfo{
		Limit:     l.config.Requests,
		Remaining: l.config.Requests,
		ResetAt:   time.Now().Add(l.config.Window),
	}

	b, ok := l.buckets[key]
	if !ok {
		return info, nil
	}

	if l.config.Strategy == "token_bucket" {
		info.Remaining = int(b.tokens)
	} else {
		cutoff := time.Now().Add(-l.config.Window)
		recent := 0
		for _, t := range b.hits {
			if t.After(cutoff) {
				recent++
			}
		}
		info.Remaining = l.config.Requests - recent
	}

	if info.Remaining < 0 {
		info.Remaining = 0
	}
	return info, nil
}

func (l *MemoryLimiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	close(l.stopCh)
	l.buckets = nil

	return nil
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.removeStale()
		}
	}
}

// removeStale выбрасывает простаивающие ключи, метки держим два окна
func (l *MemoryLimiter) removeStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.Window * 2)

	for key, b := range l.buckets {
		if len(b.hits) == 0 && b.refillAt.Before(cutoff) {
			delete(l.buckets, key)
			continue
		}
		b.hits = pruneBefore(b.hits, cutoff)
	}
}
