package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "review_dashboard/internal/adapters/redis"
)

func TestCache_RoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	defer c.Close()
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	var got string
	ok, err := c.Get(ctx, "story:abc", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "story:abc", "Kim is a regular.", 60))
	assert.True(t, mr.Exists("dashboard:story:abc"))

	ok, err = c.Get(ctx, "story:abc", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Kim is a regular.", got)

	mr.FastForward(61 * time.Second)
	ok, err = c.Get(ctx, "story:abc", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Del(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, 0))
	require.NoError(t, c.Del(ctx, "k"))
	var v map[string]int
	ok, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_DecodeError(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	defer c.Close()
	require.NoError(t, mr.Set("dashboard:bad", "not json"))

	var v int
	_, err := c.Get(context.Background(), "bad", &v)
	assert.Error(t, err)
}
