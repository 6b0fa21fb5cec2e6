package locker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_SerializesSameKey(t *testing.T) {
	l := NewMemoryLocker()

	unlock, err := l.Lock(context.Background(), "req-1", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "req-1", time.Second)
	assert.ErrorIs(t, err, ErrNotAcquired)

	unlock()

	unlock2, err := l.Lock(context.Background(), "req-1", time.Second)
	require.NoError(t, err)
	unlock2()
}

func TestMemoryLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewMemoryLocker()

	unlock1, err := l.Lock(context.Background(), "req-1", time.Second)
	require.NoError(t, err)
	defer unlock1()

	unlock2, err := l.Lock(context.Background(), "req-2", time.Second)
	require.NoError(t, err)
	unlock2()
}

func TestMemoryLocker_ConcurrentCounters(t *testing.T) {
	l := NewMemoryLocker()

	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			unlock, err := l.Lock(context.Background(), "shared", time.Second)
			require.NoError(t, err)
			defer unlock()

			counter++
		}()
	}

	wg.Wait()
	assert.Equal(t, 50, counter)
}
