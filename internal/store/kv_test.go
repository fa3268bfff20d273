package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_TTL(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", "1", time.Minute))
	v, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	now = now.Add(2 * time.Minute)
	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_SetNX(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	ok, err := kv.SetNX(ctx, "k", "first", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.SetNX(ctx, "k", "second", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Del(ctx, "k"))
	ok, _ = kv.SetNX(ctx, "k", "third", 0)
	assert.True(t, ok)
}

func TestLocker(t *testing.T) {
	kv := NewMemoryKV()
	l := NewLocker(kv, time.Minute)

	unlock, err := l.Lock(context.Background(), "ids:box")
	require.NoError(t, err)
	_, err = kv.Get(context.Background(), "lock:ids:box")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "ids:box")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock2, err := l.Lock(context.Background(), "ids:box")
	require.NoError(t, err)
	unlock2()
	_, err = kv.Get(context.Background(), "lock:ids:box")
	assert.ErrorIs(t, err, ErrMiss)
}
