// Package ratelimit throttles form submissions per client.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	bucketCleanupThreshold = 1 * time.Hour
	cleanupInterval        = 30 * time.Minute
)

// Limiter decides whether the client identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// Memory is a per-process token bucket limiter. Each client gets capacity
// requests, refilled in full once per window.
type Memory struct {
	mu          sync.Mutex
	capacity    int
	window      time.Duration
	clients     map[string]*clientBucket
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMemory starts a limiter and its cleanup goroutine; call Stop when done
func NewMemory(capacity int, window time.Duration) *Memory {
	m := &Memory{
		capacity:    capacity,
		window:      window,
		clients:     make(map[string]*clientBucket),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Memory) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, bucket := range m.clients {
		if now.Sub(bucket.lastRefill) > bucketCleanupThreshold {
			delete(m.clients, key)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
}

// Allow takes a token from key's bucket
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	bucket, exists := m.clients[key]

	if !exists {
		m.clients[key] = &clientBucket{
			tokens:     m.capacity - 1,
			lastRefill: now,
		}
		return m.capacity > 0, nil
	}

	if now.Sub(bucket.lastRefill) >= m.window {
		bucket.tokens = m.capacity
		bucket.lastRefill = now
	}

	if bucket.tokens <= 0 {
		return false, nil
	}

	bucket.tokens--
	return true, nil
}
