package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryLocks struct {
	held map[string]string
}

func (m *memoryLocks) AcquireLock(_ context.Context, name, token string, _ time.Duration) (bool, error) {
	if _, ok := m.held[name]; ok {
		return false, nil
	}
	m.held[name] = token
	return true, nil
}

func (m *memoryLocks) ReleaseLock(_ context.Context, name, token string) error {
	if m.held[name] == token {
		delete(m.held, name)
	}
	return nil
}

func TestRedisLockExclusive(t *testing.T) {
	store := &memoryLocks{held: map[string]string{}}
	ctx := context.Background()

	first, err := NewRedisLock(store, "reconcile", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "reconcile", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// a replica that never held the lock cannot drop it
	require.NoError(t, second.Release(ctx))
	require.Contains(t, store.held, "reconcile")

	require.NoError(t, first.Release(ctx))
	require.Empty(t, store.held)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNewRedisLockRequiresArguments(t *testing.T) {
	_, err := NewRedisLock(nil, "x", 0)
	require.Error(t, err)
	_, err = NewRedisLock(&memoryLocks{}, "", 0)
	require.Error(t, err)
}
