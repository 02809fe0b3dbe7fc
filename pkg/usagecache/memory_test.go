package usagecache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/usage"
	"github.com/dmitrymomot/meterkit/pkg/usagecache"
)

var baseTime = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func TestNewMemory_Validation(t *testing.T) {
	t.Parallel()

	_, err := usagecache.NewMemory(0, time.Minute)
	assert.ErrorIs(t, err, usagecache.ErrInvalidCapacity)

	_, err = usagecache.NewMemory(10, 24*time.Hour)
	assert.ErrorIs(t, err, usagecache.ErrInvalidTTL)

	_, err = usagecache.NewMemory(10, -time.Second)
	assert.ErrorIs(t, err, usagecache.ErrInvalidTTL)

	c, err := usagecache.NewMemory(10, 0)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()

		c, err := usagecache.NewMemory(3, time.Minute)
		require.NoError(t, err)

		require.NoError(t, c.Set(ctx, usage.Record{UserID: "u1", MonthlyCount: 7}))
		rec, err := c.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(7), rec.MonthlyCount)

		_, err = c.Get(ctx, "u2")
		assert.ErrorIs(t, err, usagecache.ErrMiss)
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()

		now := baseTime
		c, err := usagecache.NewMemory(3, time.Minute)
		require.NoError(t, err)
		c.WithClock(func() time.Time { return now })

		require.NoError(t, c.Set(ctx, usage.Record{UserID: "u1"}))
		now = now.Add(59 * time.Second)
		_, err = c.Get(ctx, "u1")
		require.NoError(t, err)

		now = now.Add(time.Second)
		_, err = c.Get(ctx, "u1")
		assert.ErrorIs(t, err, usagecache.ErrMiss)
		assert.Zero(t, c.Len())
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()

		c, err := usagecache.NewMemory(2, time.Minute)
		require.NoError(t, err)

		require.NoError(t, c.Set(ctx, usage.Record{UserID: "a"}))
		require.NoError(t, c.Set(ctx, usage.Record{UserID: "b"}))
		_, err = c.Get(ctx, "a")
		require.NoError(t, err)
		require.NoError(t, c.Set(ctx, usage.Record{UserID: "c"}))

		_, err = c.Get(ctx, "b")
		assert.ErrorIs(t, err, usagecache.ErrMiss)
		_, err = c.Get(ctx, "a")
		assert.NoError(t, err)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("invalidate and purge", func(t *testing.T) {
		t.Parallel()

		c, err := usagecache.NewMemory(5, time.Minute)
		require.NoError(t, err)

		require.NoError(t, c.Set(ctx, usage.Record{UserID: "a"}))
		require.NoError(t, c.Set(ctx, usage.Record{UserID: "b"}))

		require.NoError(t, c.Invalidate(ctx, "a"))
		_, err = c.Get(ctx, "a")
		assert.ErrorIs(t, err, usagecache.ErrMiss)

		require.NoError(t, c.Purge(ctx))
		assert.Zero(t, c.Len())
	})
}

func TestNoOp(t *testing.T) {
	t.Parallel()

	var c usagecache.Cache = usagecache.NoOp{}
	require.NoError(t, c.Set(context.Background(), usage.Record{UserID: "a"}))
	_, err := c.Get(context.Background(), "a")
	assert.ErrorIs(t, err, usagecache.ErrMiss)
}
