package locker

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker serializes within a single process. Suitable for tests and
// single-instance deployments; clustered deployments use RedisLocker.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	keyLock, ok := l.locks[key]
	if !ok {
		keyLock = &sync.Mutex{}
		l.locks[key] = keyLock
	}
	l.mu.Unlock()

	acquired := make(chan struct{})

	go func() {
		keyLock.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return keyLock.Unlock, nil
	case <-ctx.Done():
		// The goroutine will eventually take the mutex; release it again
		// so other waiters are not stranded.
		go func() {
			<-acquired
			keyLock.Unlock()
		}()

		return nil, ErrNotAcquired
	}
}
