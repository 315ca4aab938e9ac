package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, "last", "widget"))

	v, ok, err := s.Load(ctx, "last")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "widget", v)

	has, err := s.HasKey(ctx, "last")
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, s.Delete(ctx, "last"))

	has, err = s.HasKey(ctx, "last")
	require.NoError(t, err)
	require.False(t, has)
}

func TestMemoryStore_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, "k", "first"))
	require.NoError(t, s.Save(ctx, "k", "second"))

	v, ok, err := s.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", v)
}

func TestMemoryStore_CountAndLoadAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, "a", 1))
	require.NoError(t, s.Save(ctx, "b", 2))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": 1, "b": 2}, all)
}

func TestMemoryStore_LoadMissingKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v, ok, err := s.Load(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, v)
}
