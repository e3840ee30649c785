package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSetDel(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Set(ctx, "shiprocket:token:7", []byte(`{"token":"t"}`), time.Hour))

	b, ok, err := c.Get(ctx, "shiprocket:token:7")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(`{"token":"t"}`), b)
	require.Equal(t, time.Hour, mr.TTL("shiprocket:token:7"))

	require.NoError(t, c.Del(ctx, "shiprocket:token:7"))
	_, ok, err = c.Get(ctx, "shiprocket:token:7")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_Expiry(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_GetError(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	mr.Close()

	_, ok, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	require.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "rl:shiprocket:202601010000", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "rl:shiprocket:202601010000", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "rl:shiprocket:202601010000", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)
}
