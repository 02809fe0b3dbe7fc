package meter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/overage"
	"github.com/dmitrymomot/meterkit/pkg/plans"
	"github.com/dmitrymomot/meterkit/pkg/quota"
	"github.com/dmitrymomot/meterkit/pkg/schema"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

var (
	ErrInvalidRequest = errors.New("meter.errors.invalid_request")
	ErrMissingStore   = errors.New("meter.errors.missing_store")
	ErrMissingPlans   = errors.New("meter.errors.missing_plans")
)

// UsageRequest describes a completed metered action.
type UsageRequest struct {
	UserID         string `json:"user_id"`
	TierID         string `json:"tier_id"`
	Quantity       int64  `json:"quantity"`
	OverageConsent bool   `json:"overage_consent"`
}

// Receipt is the outcome of RecordUsage.
type Receipt struct {
	Record usage.Record `json:"usage"`
	// Charge is set when units above the monthly limit were billed.
	Charge *overage.Charge `json:"charge,omitempty"`
	// Deferred reports that usage or its overage could not be recorded.
	Deferred bool `json:"deferred,omitempty"`
}

// Snapshot is a user's usage next to the plan limits.
type Snapshot struct {
	Record           usage.Record `json:"usage"`
	Plan             plans.Plan   `json:"-"`
	MonthlyLimit     int64        `json:"monthly_limit"`
	DailyLimit       int64        `json:"daily_limit"`
	RemainingMonthly int64        `json:"remaining_monthly"`
	RemainingDaily   int64        `json:"remaining_daily"`
}

// Engine is the metering facade.
type Engine struct {
	plans    *plans.Registry
	store    usage.Store // writes: retrying, cache-aware
	enforcer *quota.Enforcer
	biller   *overage.Biller
	guard    *schema.Guard
	now      func() time.Time
	logger   *slog.Logger
}

// New builds an engine from its dependencies.
func New(cfg Config, deps Deps, opts ...Option) (*Engine, error) {
	if deps.Plans == nil {
		return nil, ErrMissingPlans
	}
	if deps.Store == nil {
		return nil, ErrMissingStore
	}

	o := &options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger.With(logger.Component("meter"))

	guard := deps.Guard
	if guard == nil {
		guard = schema.NewGuard(schema.WithLogger(o.logger))
	}

	var store usage.Store = deps.Store
	if deps.Cache != nil {
		store = newCachedStore(store, deps.Cache, o)
	}
	store = usage.WithRetry(store, cfg.Retry, o.logger)

	chargeLog := deps.Charges
	if chargeLog == nil {
		chargeLog = overage.NewMemoryLog()
	}

	quotaOpts := []quota.Option{quota.WithLogger(o.logger), quota.WithClock(o.now)}
	if deps.Users != nil {
		quotaOpts = append(quotaOpts, quota.WithUserLookup(deps.Users))
	}

	return &Engine{
		plans:    deps.Plans,
		store:    store,
		enforcer: quota.NewEnforcer(deps.Plans, store, quotaOpts...),
		biller: overage.NewBiller(deps.Plans, chargeLog,
			overage.WithGate(guard),
			overage.WithReverify(func(ctx context.Context) { guard.Reverify(ctx) }),
			overage.WithCurrency(cfg.Currency()),
			overage.WithClock(o.now),
			overage.WithLogger(o.logger),
		),
		guard:  guard,
		now:    o.now,
		logger: log,
	}, nil
}

// CheckQuota decides whether the user may perform one more action.
func (e *Engine) CheckQuota(ctx context.Context, userID, tierID string, overageConsent bool) (quota.Decision, error) {
	return e.enforcer.Check(ctx, userID, tierID, overageConsent)
}

// RecordUsage increments the user's counters and, with consent, bills the
// units of this request that fall above the monthly limit.
//
// Storage outages that outlast the retries return an error matching
// usage.ErrAccountingDeferred together with a receipt marked Deferred; the
// caller should log it and let the user's action stand.
func (e *Engine) RecordUsage(ctx context.Context, req UsageRequest) (Receipt, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.UserID == "" {
		return Receipt{}, errors.Join(ErrInvalidRequest, usage.ErrInvalidUserID)
	}
	if req.Quantity < 0 {
		return Receipt{}, errors.Join(ErrInvalidRequest, usage.ErrInvalidQuantity)
	}

	plan, err := e.plans.Get(req.TierID)
	if err != nil {
		return Receipt{}, err
	}

	rec, err := e.increment(ctx, req)
	if err != nil {
		if errors.Is(err, usage.ErrAccountingDeferred) {
			return Receipt{Deferred: true}, err
		}
		return Receipt{}, err
	}

	receipt := Receipt{Record: rec}
	units := overageUnits(plan, rec.MonthlyCount, req.Quantity)
	if units == 0 {
		return receipt, nil
	}
	if !req.OverageConsent {
		// the check admitted the request concurrently with another one
		e.logger.WarnContext(ctx, "usage above monthly limit without overage consent",
			logger.UserID(req.UserID),
			logger.TierID(req.TierID),
			logger.Quantity(units),
		)
		return receipt, nil
	}

	charge, err := e.biller.RecordOverage(ctx, req.UserID, req.TierID, units)
	if err != nil {
		e.logger.ErrorContext(ctx, "overage charge not recorded",
			logger.Alert("overage_unbilled"),
			logger.UserID(req.UserID),
			logger.TierID(req.TierID),
			logger.Quantity(units),
			logger.Error(err),
		)
		receipt.Deferred = true
		return receipt, errors.Join(usage.ErrAccountingDeferred, err)
	}
	if charge.Recorded() {
		receipt.Charge = &charge
	}
	return receipt, nil
}

// increment retries once with a fresh schema verification when the store
// reports that its structure changed underneath it.
func (e *Engine) increment(ctx context.Context, req UsageRequest) (usage.Record, error) {
	rec, err := e.store.Increment(ctx, req.UserID, req.Quantity)
	if err == nil || !errors.Is(err, usage.ErrSchemaMismatch) {
		return rec, err
	}

	caps := e.guard.Reverify(ctx)
	e.logger.WarnContext(ctx, "usage schema mismatch, retrying with verified capabilities",
		logger.UserID(req.UserID),
		slog.Bool("daily_tracking", caps.DailyTracking),
		logger.Error(err),
	)
	rec, err = e.store.Increment(ctx, req.UserID, req.Quantity)
	if err != nil && !errors.Is(err, usage.ErrAccountingDeferred) && errors.Is(err, usage.ErrStorageUnavailable) {
		return usage.Record{}, errors.Join(usage.ErrAccountingDeferred, err)
	}
	return rec, err
}

// overageUnits returns how many of the qty units ending at count lie above
// the plan's monthly limit.
func overageUnits(plan plans.Plan, count, qty int64) int64 {
	if !plan.HasMonthlyLimit() || count <= plan.MonthlyLimit {
		return 0
	}
	return min(qty, count-plan.MonthlyLimit)
}

// Usage returns the user's effective usage with the plan limits.
func (e *Engine) Usage(ctx context.Context, userID, tierID string) (Snapshot, error) {
	plan, err := e.plans.Get(tierID)
	if err != nil {
		return Snapshot{}, err
	}
	rec, err := e.store.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	rec = rec.Effective(e.now())
	return Snapshot{
		Record:           rec,
		Plan:             plan,
		MonthlyLimit:     plan.MonthlyLimit,
		DailyLimit:       plan.DailyLimit,
		RemainingMonthly: plan.RemainingMonthly(rec.MonthlyCount),
		RemainingDaily:   plan.RemainingDaily(rec.DailyCount),
	}, nil
}

// Capabilities returns the features the storage schema supports.
func (e *Engine) Capabilities() schema.Capabilities {
	return e.guard.Capabilities()
}

// Biller exposes charge status updates and listings.
func (e *Engine) Biller() *overage.Biller {
	return e.biller
}

// ResetMonthly rolls every record over to next through the engine's store
// stack, so cached reads are purged with the reset. It satisfies
// reset.Resetter.
func (e *Engine) ResetMonthly(ctx context.Context, next usage.Period) (int64, error) {
	return e.store.ResetMonthly(ctx, next)
}
