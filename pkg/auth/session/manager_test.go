package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/pkg/config"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "circlemart:session:" + accessID
}

func testManager(t *testing.T) (*Manager, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	manager, err := newManager(store, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60 * 24})
	require.NoError(t, err)
	return manager, store
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	_, err := newManager(newMemoryStore(), config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)
}

func TestGenerateStoresDigestOnly(t *testing.T) {
	manager, store := testManager(t)
	token, err := manager.Generate(context.Background(), "access-1")
	require.NoError(t, err)

	stored := store.data[store.AccessSessionKey("access-1")]
	require.NotEqual(t, token, stored)
	require.Equal(t, digest(token), stored)

	_, err = manager.Generate(context.Background(), " ")
	require.Error(t, err)
}

func TestRotate(t *testing.T) {
	manager, store := testManager(t)
	ctx := context.Background()
	token, err := manager.Generate(ctx, "access-1")
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, "access-1", "wrong")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	newAccessID, newToken, err := manager.Rotate(ctx, "access-1", token)
	require.NoError(t, err)
	require.NotContains(t, store.data, store.AccessSessionKey("access-1"))
	require.Equal(t, digest(newToken), store.data[store.AccessSessionKey(newAccessID)])

	_, _, err = manager.Rotate(ctx, "access-1", token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeAndHasSession(t *testing.T) {
	manager, _ := testManager(t)
	ctx := context.Background()
	_, err := manager.Generate(ctx, "access-9")
	require.NoError(t, err)

	ok, err := manager.HasSession(ctx, "access-9")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, "access-9"))
	ok, err = manager.HasSession(ctx, "access-9")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 24*time.Hour, manager.TTL())
}
