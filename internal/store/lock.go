package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLockTimeout is returned when a lock could not be taken before the context ended.
var ErrLockTimeout = errors.New("lock not acquired")

// Locker serialises work across service instances with SETNX keys.
type Locker struct {
	kv    KV
	ttl   time.Duration
	retry time.Duration
}

func NewLocker(kv KV, ttl time.Duration) *Locker {
	return &Locker{kv: kv, ttl: ttl, retry: 50 * time.Millisecond}
}

// Lock blocks until key is held or ctx is done. The returned func releases the lock
// if it is still owned by this caller.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	key = "lock:" + key
	for {
		ok, err := l.kv.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to take lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// best effort: a different token means the ttl expired and someone else holds it
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if v, err := l.kv.Get(rctx, key); err == nil && v == token {
					_ = l.kv.Del(rctx, key)
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-time.After(l.retry):
		}
	}
}
