package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "items")
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	require.NoError(t, s.Save(ctx, "last", "widget"))

	v, ok, err := s.Load(ctx, "last")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "widget", v)

	require.NoError(t, s.Delete(ctx, "last"))

	has, err := s.HasKey(ctx, "last")
	require.NoError(t, err)
	require.False(t, has)
}

func TestRedisStore_LoadAllAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	require.NoError(t, s.Save(ctx, "a", "1"))
	require.NoError(t, s.Save(ctx, "b", "2"))

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": "1", "b": "2"}, all)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestRedisStore_Namespacing(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	items := NewRedisStore(client, "items")
	orders := NewRedisStore(client, "orders")

	require.NoError(t, items.Save(ctx, "k", "item-value"))
	require.NoError(t, orders.Save(ctx, "k", "order-value"))

	v, _, err := items.Load(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "item-value", v)

	v, _, err = orders.Load(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "order-value", v)
}
