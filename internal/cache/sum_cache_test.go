package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "icarus:entries:ver:7", versionKey(7))
	assert.Equal(t, "icarus:sum:7:3:1792108800", sumKey(7, 3, day))

	// the same local midnight in two zones is two different days
	edt := time.Date(2026, 10, 16, 0, 0, 0, 0, time.FixedZone("EDT", -4*60*60))
	assert.NotEqual(t, sumKey(7, 3, day), sumKey(7, 3, edt))
}

func TestNewSumCache_DefaultTTL(t *testing.T) {
	c := NewSumCache(nil, 0)
	assert.Equal(t, 5*time.Minute, c.ttl)
}

func TestNew_UnreachableRedis(t *testing.T) {
	_, err := New(context.Background(), "127.0.0.1:1", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis failed")
}

func TestSumCache_ErrorsAreReported(t *testing.T) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewSumCache(client, time.Minute)
	ctx := context.Background()
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	_, _, ok, err := c.Get(ctx, 1, day)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Set(ctx, 1, 0, day, 20))
	assert.Error(t, c.Invalidate(ctx, 1))
}

func newMiniCache(t *testing.T) *SumCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewSumCache(client, time.Minute)
}

func TestSumCache_HitAndInvalidate(t *testing.T) {
	c := newMiniCache(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	_, ver, ok, err := c.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, ver)

	require.NoError(t, c.Set(ctx, 1, ver, day, 20))
	sum, _, ok, err := c.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20.0, sum)

	// other users and other days are separate
	_, _, ok, err = c.Get(ctx, 2, day)
	require.NoError(t, err)
	assert.False(t, ok)
	_, _, ok, err = c.Get(ctx, 1, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Invalidate(ctx, 1))
	_, ver, ok, err = c.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), ver)
}

func TestSumCache_StaleWriteAfterInvalidateIsNotServed(t *testing.T) {
	c := newMiniCache(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	_, ver, ok, err := c.Get(ctx, 1, day)
	require.NoError(t, err)
	require.False(t, ok)

	// a mutation lands between the miss and the write of the sum computed before it
	require.NoError(t, c.Invalidate(ctx, 1))
	require.NoError(t, c.Set(ctx, 1, ver, day, 20))

	_, ver, ok, err = c.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.False(t, ok, "sum computed before the mutation must not be served")

	require.NoError(t, c.Set(ctx, 1, ver, day, 60))
	sum, _, ok, err := c.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 60.0, sum)
}

func TestSumCache_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()
	c := NewSumCache(client, 30*time.Second)
	ctx := context.Background()
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.Set(ctx, 1, 0, day, 20))
	assert.Equal(t, 30*time.Second, mr.TTL(sumKey(1, 0, day)))

	mr.FastForward(31 * time.Second)
	_, _, ok, err := c.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.False(t, ok)
}
