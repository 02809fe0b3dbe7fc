package usage_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/usage"
)

type storeFactory func(t *testing.T, clock *testClock, gate *testGate) usage.Store

// runStoreSuite checks the behaviour every Store backend must share.
func runStoreSuite(t *testing.T, newStore storeFactory) {
	t.Run("get creates zeroed record", func(t *testing.T) {
		clock := newTestClock(baseTime)
		store := newStore(t, clock, &testGate{})

		rec, err := store.Get(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", rec.UserID)
		assert.Zero(t, rec.MonthlyCount)
		assert.Zero(t, rec.DailyCount)
		assert.Equal(t, usage.Period("2026-03"), rec.BillingPeriod)
	})

	t.Run("increment updates monthly and daily counters", func(t *testing.T) {
		clock := newTestClock(baseTime)
		store := newStore(t, clock, &testGate{})
		ctx := context.Background()

		rec, err := store.Increment(ctx, "user-1", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.MonthlyCount)
		assert.Equal(t, int64(1), rec.DailyCount)
		assert.Equal(t, usage.Day(baseTime), rec.DailyAnchor)

		rec, err = store.Increment(ctx, "user-1", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(4), rec.MonthlyCount)
		assert.Equal(t, int64(4), rec.DailyCount)

		got, err := store.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.MonthlyCount)
		assert.Equal(t, int64(4), got.DailyCount)
	})

	for _, n := range []int{2, 10, 100} {
		t.Run(fmt.Sprintf("concurrent increments are not lost n=%d", n), func(t *testing.T) {
			clock := newTestClock(baseTime)
			store := newStore(t, clock, &testGate{})
			ctx := context.Background()

			before, err := store.Get(ctx, "user-c")
			require.NoError(t, err)

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := store.Increment(ctx, "user-c", 1); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			after, err := store.Get(ctx, "user-c")
			require.NoError(t, err)
			assert.Equal(t, before.MonthlyCount+int64(n), after.MonthlyCount)
			assert.Equal(t, int64(n), after.DailyCount)
		})
	}

	t.Run("daily counter rolls over lazily", func(t *testing.T) {
		yesterday := baseTime.Add(-24 * time.Hour)
		clock := newTestClock(yesterday)
		store := newStore(t, clock, &testGate{})
		ctx := context.Background()

		_, err := store.Increment(ctx, "user-r", 3)
		require.NoError(t, err)

		clock.Set(baseTime)

		rec, err := store.Get(ctx, "user-r")
		require.NoError(t, err)
		assert.Zero(t, rec.DailyCount, "stale anchor reads as zero")
		assert.Equal(t, int64(3), rec.MonthlyCount, "rollover does not touch monthly count")

		rec, err = store.Increment(ctx, "user-r", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.DailyCount)
		assert.Equal(t, usage.Day(baseTime), rec.DailyAnchor)
		assert.Equal(t, int64(4), rec.MonthlyCount)
	})

	t.Run("daily tracking unavailable", func(t *testing.T) {
		clock := newTestClock(baseTime)
		gate := &testGate{}
		gate.disabled.Store(true)
		store := newStore(t, clock, gate)
		ctx := context.Background()

		rec, err := store.Increment(ctx, "user-d", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.MonthlyCount)
		assert.Zero(t, rec.DailyCount)

		rec, err = store.Get(ctx, "user-d")
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.MonthlyCount)
		assert.Zero(t, rec.DailyCount)
	})

	t.Run("reset monthly is idempotent per period", func(t *testing.T) {
		clock := newTestClock(baseTime)
		store := newStore(t, clock, &testGate{})
		ctx := context.Background()

		_, err := store.Increment(ctx, "user-a", 5)
		require.NoError(t, err)
		_, err = store.Increment(ctx, "user-b", 7)
		require.NoError(t, err)

		next := usage.PeriodOf(baseTime).Next()
		n, err := store.ResetMonthly(ctx, next)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = store.ResetMonthly(ctx, next)
		require.NoError(t, err)
		assert.Zero(t, n)

		rec, err := store.Get(ctx, "user-a")
		require.NoError(t, err)
		assert.Zero(t, rec.MonthlyCount)
		assert.Equal(t, next, rec.BillingPeriod)
		assert.Equal(t, int64(5), rec.DailyCount, "reset leaves the daily counter alone")

		_, err = store.ResetMonthly(ctx, "not-a-period")
		assert.ErrorIs(t, err, usage.ErrInvalidPeriod)
	})

	t.Run("validation", func(t *testing.T) {
		store := newStore(t, newTestClock(baseTime), &testGate{})
		ctx := context.Background()

		_, err := store.Get(ctx, " ")
		assert.ErrorIs(t, err, usage.ErrInvalidUserID)

		_, err = store.Increment(ctx, "", 1)
		assert.ErrorIs(t, err, usage.ErrInvalidUserID)

		_, err = store.Increment(ctx, "user-v", 0)
		assert.ErrorIs(t, err, usage.ErrInvalidQuantity)
	})
}
