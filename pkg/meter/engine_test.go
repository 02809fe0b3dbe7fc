package meter_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/meter"
	"github.com/dmitrymomot/meterkit/pkg/overage"
	"github.com/dmitrymomot/meterkit/pkg/plans"
	"github.com/dmitrymomot/meterkit/pkg/quota"
	"github.com/dmitrymomot/meterkit/pkg/schema"
	"github.com/dmitrymomot/meterkit/pkg/usage"
	"github.com/dmitrymomot/meterkit/pkg/usagecache"
)

var baseTime = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

var fastConfig = meter.Config{
	CurrencyCode: "USD",
	Retry:        usage.RetryConfig{Attempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
}

func registry() *plans.Registry {
	return plans.MustNewRegistry(context.Background(), plans.NewInMemSource(plans.DefaultPlans()))
}

func clock() time.Time { return baseTime }

func newEngine(t *testing.T, deps meter.Deps) *meter.Engine {
	t.Helper()
	if deps.Plans == nil {
		deps.Plans = registry()
	}
	if deps.Store == nil {
		deps.Store = usage.NewMemoryStore(usage.WithClock(clock))
	}
	e, err := meter.New(fastConfig, deps, meter.WithClock(clock))
	require.NoError(t, err)
	return e
}

// downStore fails every call like an unreachable database.
type downStore struct {
	usage.Store
}

func (downStore) Get(context.Context, string) (usage.Record, error) {
	return usage.Record{}, usage.ErrStorageUnavailable
}

func (downStore) Increment(context.Context, string, int64) (usage.Record, error) {
	return usage.Record{}, errors.Join(usage.ErrStorageUnavailable, errors.New("dial tcp: i/o timeout"))
}

// driftingStore reports a schema mismatch on its first increment.
type driftingStore struct {
	*usage.MemoryStore
	calls atomic.Int32
}

func (s *driftingStore) Increment(ctx context.Context, userID string, qty int64) (usage.Record, error) {
	if s.calls.Add(1) == 1 {
		return usage.Record{}, errors.Join(usage.ErrStorageUnavailable, usage.ErrSchemaMismatch)
	}
	return s.MemoryStore.Increment(ctx, userID, qty)
}

func TestNew_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := meter.New(fastConfig, meter.Deps{Store: usage.NewMemoryStore()})
	assert.ErrorIs(t, err, meter.ErrMissingPlans)

	_, err = meter.New(fastConfig, meter.Deps{Plans: registry()})
	assert.ErrorIs(t, err, meter.ErrMissingStore)
}

func TestEngine_RecordUsage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("within quota", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t, meter.Deps{})
		r, err := e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierBasic})
		require.NoError(t, err)
		assert.Equal(t, int64(1), r.Record.MonthlyCount)
		assert.Equal(t, int64(1), r.Record.DailyCount)
		assert.Nil(t, r.Charge)
		assert.False(t, r.Deferred)
	})

	t.Run("consented overage is priced from the post-increment count", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore(usage.WithClock(clock))
		_, err := store.Increment(ctx, "u1", 150)
		require.NoError(t, err)

		e := newEngine(t, meter.Deps{Store: store})
		r, err := e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierPro, Quantity: 10, OverageConsent: true})
		require.NoError(t, err)
		require.NotNil(t, r.Charge)
		assert.Equal(t, int64(10), r.Charge.UnitCount)
		assert.True(t, decimal.RequireFromString("0.80").Equal(r.Charge.Amount))
		assert.Equal(t, int64(160), r.Record.MonthlyCount)
	})

	t.Run("only units above the limit are billed", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemoryStore(usage.WithClock(clock))
		_, err := store.Increment(ctx, "u1", 58)
		require.NoError(t, err)

		e := newEngine(t, meter.Deps{Store: store})
		r, err := e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierBasic, Quantity: 5, OverageConsent: true})
		require.NoError(t, err)
		require.NotNil(t, r.Charge)
		assert.Equal(t, int64(3), r.Charge.UnitCount)
		assert.True(t, decimal.RequireFromString("0.30").Equal(r.Charge.Amount))
	})

	t.Run("no charge without consent", func(t *testing.T) {
		t.Parallel()

		charges := overage.NewMemoryLog()
		store := usage.NewMemoryStore(usage.WithClock(clock))
		_, err := store.Increment(ctx, "u1", 5)
		require.NoError(t, err)

		e := newEngine(t, meter.Deps{Store: store, Charges: charges})
		r, err := e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierFree})
		require.NoError(t, err)
		assert.Nil(t, r.Charge)

		pending, err := charges.ListPending(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("storage outage defers accounting", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t, meter.Deps{Store: downStore{}})
		r, err := e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierPro})
		assert.ErrorIs(t, err, usage.ErrAccountingDeferred)
		assert.True(t, r.Deferred)
	})

	t.Run("schema mismatch re-verifies and retries", func(t *testing.T) {
		t.Parallel()

		daily := atomic.Bool{}
		daily.Store(true)
		guard := schema.NewGuard(schema.WithChecks(schema.DailyTracking,
			schema.Func("columns", func(context.Context) error {
				if daily.Load() {
					return nil
				}
				return schema.ErrMissingColumn
			}),
		))
		store := &driftingStore{MemoryStore: usage.NewMemoryStore(usage.WithClock(clock), usage.WithFeatureGate(guard))}
		e := newEngine(t, meter.Deps{Store: store, Guard: guard})

		daily.Store(false)
		r, err := e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierPro})
		require.NoError(t, err)
		assert.Equal(t, int64(1), r.Record.MonthlyCount)
		assert.Zero(t, r.Record.DailyCount)
		assert.False(t, e.Capabilities().DailyTracking)
		assert.Equal(t, int32(2), store.calls.Load())
	})

	t.Run("missing charge log keeps the action", func(t *testing.T) {
		t.Parallel()

		guard := schema.NewGuard(schema.WithChecks(schema.OverageLogging,
			schema.Func("table", func(context.Context) error { return schema.ErrMissingTable }),
		))
		guard.Verify(ctx)

		store := usage.NewMemoryStore(usage.WithClock(clock))
		_, err := store.Increment(ctx, "u1", 450)
		require.NoError(t, err)

		e := newEngine(t, meter.Deps{Store: store, Guard: guard})
		r, err := e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierAgency, OverageConsent: true})
		require.NoError(t, err)
		assert.Nil(t, r.Charge)
		assert.Equal(t, int64(451), r.Record.MonthlyCount)
	})

	t.Run("unreachable schema probe keeps features on", func(t *testing.T) {
		t.Parallel()

		var reachable atomic.Bool
		probe := func(context.Context) error {
			if reachable.Load() {
				return nil
			}
			return errors.Join(schema.ErrProbeFailed, errors.New("dial tcp: connection refused"))
		}
		guard := schema.NewGuard(
			schema.WithChecks(schema.DailyTracking, schema.Func("columns", probe)),
			schema.WithChecks(schema.OverageLogging, schema.Func("table", probe)),
		)
		assert.Equal(t, schema.Capabilities{DailyTracking: true, OverageLogging: true}, guard.Verify(ctx))
		reachable.Store(true)

		store := usage.NewMemoryStore(usage.WithClock(clock), usage.WithFeatureGate(guard))
		e := newEngine(t, meter.Deps{Store: store, Guard: guard})

		r, err := e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierPro, Quantity: 160, OverageConsent: true})
		require.NoError(t, err)
		assert.Equal(t, int64(160), r.Record.MonthlyCount)
		assert.Equal(t, int64(160), r.Record.DailyCount)
		require.NotNil(t, r.Charge)
		assert.Equal(t, int64(10), r.Charge.UnitCount)
		assert.True(t, r.Charge.Amount.Equal(decimal.RequireFromString("0.80")))

		pending, err := e.Biller().PendingCharges(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t, meter.Deps{})

		_, err := e.RecordUsage(ctx, meter.UsageRequest{TierID: plans.TierPro})
		assert.ErrorIs(t, err, meter.ErrInvalidRequest)

		_, err = e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierPro, Quantity: -2})
		assert.ErrorIs(t, err, usage.ErrInvalidQuantity)

		_, err = e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: "gold"})
		assert.ErrorIs(t, err, plans.ErrConfiguration)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		t.Parallel()

		cache, err := usagecache.NewMemory(16, time.Minute)
		require.NoError(t, err)
		store := usage.NewMemoryStore(usage.WithClock(clock))
		e := newEngine(t, meter.Deps{Store: store, Cache: cache})

		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierAgency})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// the cache may briefly hold an older copy; the store is authoritative
		rec, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(100), rec.MonthlyCount)
	})
}

func TestEngine_CheckQuota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reflects recorded usage through the cache", func(t *testing.T) {
		t.Parallel()

		cache, err := usagecache.NewMemory(16, time.Minute)
		require.NoError(t, err)
		e := newEngine(t, meter.Deps{Cache: cache})

		for range 2 {
			d, err := e.CheckQuota(ctx, "u1", plans.TierBasic, false)
			require.NoError(t, err)
			require.True(t, d.Allowed)
			_, err = e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierBasic})
			require.NoError(t, err)
		}

		d, err := e.CheckQuota(ctx, "u1", plans.TierBasic, false)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, quota.ReasonDailyLimit, d.Reason)
	})

	t.Run("outage fails open", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t, meter.Deps{Store: downStore{}})
		d, err := e.CheckQuota(ctx, "u1", plans.TierFree, false)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.True(t, d.Degraded)
	})
}

func TestEngine_Usage(t *testing.T) {
	t.Parallel()

	e := newEngine(t, meter.Deps{})
	_, err := e.RecordUsage(context.Background(), meter.UsageRequest{UserID: "u1", TierID: plans.TierPro, Quantity: 3})
	require.NoError(t, err)

	snap, err := e.Usage(context.Background(), "u1", plans.TierPro)
	require.NoError(t, err)
	assert.Equal(t, int64(150), snap.MonthlyLimit)
	assert.Equal(t, int64(5), snap.DailyLimit)
	assert.Equal(t, int64(147), snap.RemainingMonthly)
	assert.Equal(t, int64(2), snap.RemainingDaily)

	_, err = e.Usage(context.Background(), "u1", "gold")
	assert.ErrorIs(t, err, plans.ErrConfiguration)
}

func TestEngine_ResetMonthly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache, err := usagecache.NewMemory(16, time.Minute)
	require.NoError(t, err)
	e := newEngine(t, meter.Deps{Cache: cache})

	_, err = e.RecordUsage(ctx, meter.UsageRequest{UserID: "u1", TierID: plans.TierPro, Quantity: 4})
	require.NoError(t, err)
	snap, err := e.Usage(ctx, "u1", plans.TierPro)
	require.NoError(t, err)
	require.Equal(t, int64(4), snap.Record.MonthlyCount)

	next := usage.PeriodOf(baseTime).Next()
	n, err := e.ResetMonthly(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	snap, err = e.Usage(ctx, "u1", plans.TierPro)
	require.NoError(t, err)
	assert.Zero(t, snap.Record.MonthlyCount)
	assert.Equal(t, next, snap.Record.BillingPeriod)

	n, err = e.ResetMonthly(ctx, next)
	require.NoError(t, err)
	assert.Zero(t, n)
}
