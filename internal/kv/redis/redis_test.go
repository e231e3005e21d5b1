package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nulzo/prism-copy/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := Open(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStore_SetGetDelete(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	var out map[string]int
	assert.ErrorIs(t, s.Get(ctx, "quota", &out), kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "quota", map[string]int{"daily_used": 3}))
	require.NoError(t, s.Get(ctx, "quota", &out))
	assert.Equal(t, 3, out["daily_used"])

	raw, err := mr.Get("prism:quota")
	require.NoError(t, err)
	assert.JSONEq(t, `{"daily_used":3}`, raw)

	require.NoError(t, s.Delete(ctx, "quota"))
	assert.False(t, mr.Exists("prism:quota"))
	assert.ErrorIs(t, s.Get(ctx, "quota", &out), kv.ErrNotFound)
}

func TestOpen_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
