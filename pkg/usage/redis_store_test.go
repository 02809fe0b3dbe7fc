package usage_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/usage"
)

func newRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	runStoreSuite(t, func(t *testing.T, clock *testClock, gate *testGate) usage.Store {
		client, _ := newRedisClient(t)
		return usage.NewRedisStore(client,
			usage.WithClock(clock.Now),
			usage.WithFeatureGate(gate),
			usage.WithScanBatchSize(1),
		)
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	t.Parallel()

	client, mr := newRedisClient(t)
	clock := newTestClock(baseTime)
	store := usage.NewRedisStore(client, usage.WithClock(clock.Now), usage.WithKeyPrefix("test:usage:"))

	_, err := store.Increment(context.Background(), "user-1", 2)
	require.NoError(t, err)

	assert.Equal(t, "2", mr.HGet("test:usage:user-1", "monthly"))
	assert.Equal(t, "2", mr.HGet("test:usage:user-1", "daily"))
	assert.Equal(t, "2026-03-15", mr.HGet("test:usage:user-1", "anchor"))
	assert.Equal(t, "2026-03", mr.HGet("test:usage:user-1", "period"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	t.Parallel()

	client, mr := newRedisClient(t)
	store := usage.NewRedisStore(client)
	mr.Close()

	_, err := store.Increment(context.Background(), "user-1", 1)
	assert.ErrorIs(t, err, usage.ErrStorageUnavailable)

	_, err = store.Get(context.Background(), "user-1")
	assert.ErrorIs(t, err, usage.ErrStorageUnavailable)
}
