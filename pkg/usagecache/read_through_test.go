package usagecache_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/usage"
	"github.com/dmitrymomot/meterkit/pkg/usagecache"
)

type countingStore struct {
	*usage.MemoryStore
	gets atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, userID string) (usage.Record, error) {
	s.gets.Add(1)
	return s.MemoryStore.Get(ctx, userID)
}

// blockingStore holds the first Get until release is closed. It honours
// context cancellation like a database driver would.
type blockingStore struct {
	*usage.MemoryStore
	gets    atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Get(ctx context.Context, userID string) (usage.Record, error) {
	if s.gets.Add(1) == 1 {
		close(s.entered)
	}
	select {
	case <-ctx.Done():
		return usage.Record{}, ctx.Err()
	case <-s.release:
	}
	return s.MemoryStore.Get(ctx, userID)
}

// brokenCache fails every operation.
type brokenCache struct {
	invalidated atomic.Int32
}

var errCacheDown = errors.New("cache down")

func (c *brokenCache) Get(context.Context, string) (usage.Record, error) {
	return usage.Record{}, errCacheDown
}
func (c *brokenCache) Set(context.Context, usage.Record) error { return errCacheDown }
func (c *brokenCache) Invalidate(context.Context, string) error {
	c.invalidated.Add(1)
	return nil
}
func (c *brokenCache) Purge(context.Context) error { return errCacheDown }

func newReadThrough(t *testing.T, now *time.Time) (*usagecache.ReadThrough, *countingStore, *usagecache.Memory) {
	t.Helper()

	clock := func() time.Time { return *now }
	store := &countingStore{MemoryStore: usage.NewMemoryStore(usage.WithClock(clock))}
	c, err := usagecache.NewMemory(100, time.Minute)
	require.NoError(t, err)
	c.WithClock(clock)
	return usagecache.NewReadThrough(store, c, usagecache.WithClock(clock)), store, c
}

func TestReadThrough_Get(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("second read is served from cache", func(t *testing.T) {
		t.Parallel()

		now := baseTime
		rt, store, _ := newReadThrough(t, &now)

		_, err := rt.Get(ctx, "u1")
		require.NoError(t, err)
		_, err = rt.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int32(1), store.gets.Load())
	})

	t.Run("cached daily count rolls over at midnight", func(t *testing.T) {
		t.Parallel()

		now := baseTime.Truncate(24 * time.Hour).Add(23*time.Hour + 59*time.Minute + 30*time.Second)
		rt, _, _ := newReadThrough(t, &now)

		rec, err := rt.Increment(ctx, "u1", 4)
		require.NoError(t, err)
		require.Equal(t, int64(4), rec.DailyCount)

		now = now.Add(45 * time.Second)
		rec, err = rt.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Zero(t, rec.DailyCount)
		assert.Equal(t, int64(4), rec.MonthlyCount)
	})

	t.Run("cancelled caller does not fail a shared load", func(t *testing.T) {
		t.Parallel()

		now := baseTime
		store := &blockingStore{
			MemoryStore: usage.NewMemoryStore(usage.WithClock(func() time.Time { return now })),
			entered:     make(chan struct{}),
			release:     make(chan struct{}),
		}
		c, err := usagecache.NewMemory(100, time.Minute)
		require.NoError(t, err)
		rt := usagecache.NewReadThrough(store, c)

		first, cancel := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := rt.Get(first, "u1")
			firstErr <- err
		}()
		<-store.entered

		type result struct {
			rec usage.Record
			err error
		}
		second := make(chan result, 1)
		go func() {
			rec, err := rt.Get(ctx, "u1")
			second <- result{rec, err}
		}()

		cancel()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		time.Sleep(20 * time.Millisecond)
		close(store.release)

		res := <-second
		require.NoError(t, res.err)
		assert.Equal(t, "u1", res.rec.UserID)
		assert.Equal(t, int32(1), store.gets.Load())
	})

	t.Run("cache failure falls back to store", func(t *testing.T) {
		t.Parallel()

		store := &countingStore{MemoryStore: usage.NewMemoryStore()}
		rt := usagecache.NewReadThrough(store, &brokenCache{})

		rec, err := rt.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, int32(1), store.gets.Load())
	})
}

func TestReadThrough_Increment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fresh value replaces cached entry", func(t *testing.T) {
		t.Parallel()

		now := baseTime
		rt, store, c := newReadThrough(t, &now)

		_, err := rt.Get(ctx, "u1")
		require.NoError(t, err)

		_, err = rt.Increment(ctx, "u1", 3)
		require.NoError(t, err)

		cached, err := c.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), cached.MonthlyCount)

		rec, err := rt.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), rec.MonthlyCount)
		assert.Equal(t, int32(1), store.gets.Load())
	})

	t.Run("failed cache write invalidates", func(t *testing.T) {
		t.Parallel()

		bc := &brokenCache{}
		rt := usagecache.NewReadThrough(usage.NewMemoryStore(), bc)

		rec, err := rt.Increment(ctx, "u1", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.MonthlyCount)
		assert.Equal(t, int32(1), bc.invalidated.Load())
	})

	t.Run("store errors are returned", func(t *testing.T) {
		t.Parallel()

		now := baseTime
		rt, _, _ := newReadThrough(t, &now)

		_, err := rt.Increment(ctx, "u1", 0)
		assert.ErrorIs(t, err, usage.ErrInvalidQuantity)
	})
}

func TestReadThrough_ResetMonthly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := baseTime
	rt, _, c := newReadThrough(t, &now)

	_, err := rt.Increment(ctx, "u1", 5)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	n, err := rt.ResetMonthly(ctx, usage.PeriodOf(now).Next())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, c.Len())

	rec, err := rt.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, rec.MonthlyCount)
}
