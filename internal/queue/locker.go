package queue

import (
	"context"
	"sync"
	"time"
)

// Locker guards unique jobs.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// MemoryLocker keeps unique locks in process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	now   func() time.Time
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.locks[key]; ok && now.Before(until) {
		return false, nil
	}
	l.locks[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.locks, key)
	l.mu.Unlock()
	return nil
}
