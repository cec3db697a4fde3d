package cache

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count   int64
	resetAt time.Time
}

// InMemoryRequestLimiter is a fixed-window limiter local to this process.
// Suitable for single-instance deployments and testing.
type InMemoryRequestLimiter struct {
	mu        sync.Mutex
	windows   map[string]*bucket
	limit     int
	window    time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRequestLimiter creates a limiter and starts its cleanup goroutine
func NewInMemoryRequestLimiter(limit int, every time.Duration) *InMemoryRequestLimiter {
	l := &InMemoryRequestLimiter{
		windows:  make(map[string]*bucket),
		limit:    limit,
		window:   every,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Allow counts one request for key
func (l *InMemoryRequestLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &bucket{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++

	return decide(w.count, l.limit, w.resetAt.Sub(now)), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (l *InMemoryRequestLimiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

// Size returns the number of tracked keys
func (l *InMemoryRequestLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *InMemoryRequestLimiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(2 * l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemoryRequestLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

var _ RequestLimiter = (*InMemoryRequestLimiter)(nil)
