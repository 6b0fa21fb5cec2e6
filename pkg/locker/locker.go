// Package locker provides mutual exclusion for approval request
// transitions. Votes against the same request must serialize so unanimous
// tallies never race.
package locker

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired indicates the lock could not be taken before the context
// expired.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker serializes access to a named resource. Unlock is returned rather
// than exposed on the interface so callers cannot release a key they never
// held.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
