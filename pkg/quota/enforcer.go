package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/plans"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

// PlanLookup resolves tier identifiers. *plans.Registry implements it.
type PlanLookup interface {
	Get(tierID string) (plans.Plan, error)
}

// UserLookup confirms that a user exists. Implementations return an error
// matching usage.ErrUserNotFound for unknown users.
type UserLookup interface {
	LookupUser(ctx context.Context, userID string) error
}

// UserLookupFunc adapts a function to UserLookup.
type UserLookupFunc func(ctx context.Context, userID string) error

func (f UserLookupFunc) LookupUser(ctx context.Context, userID string) error {
	return f(ctx, userID)
}

// Enforcer evaluates quota decisions.
type Enforcer struct {
	plans  PlanLookup
	usage  usage.Reader
	users  UserLookup
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Enforcer.
type Option func(*Enforcer)

func WithLogger(l *slog.Logger) Option {
	return func(e *Enforcer) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Enforcer) {
		if now != nil {
			e.now = now
		}
	}
}

// WithUserLookup adds an identity check before usage is read.
func WithUserLookup(u UserLookup) Option {
	return func(e *Enforcer) {
		e.users = u
	}
}

// NewEnforcer creates an enforcer. reader is usually a usagecache.ReadThrough
// so that checks hit the cache before the store.
func NewEnforcer(pl PlanLookup, reader usage.Reader, opts ...Option) *Enforcer {
	e := &Enforcer{
		plans:  pl,
		usage:  reader,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logger.Component("quota"))
	return e
}

// Check decides whether userID on tierID may perform one more action.
// The returned error is non-nil only for configuration problems and matches
// plans.ErrConfiguration.
func (e *Enforcer) Check(ctx context.Context, userID, tierID string, overageConsent bool) (Decision, error) {
	plan, err := e.plans.Get(tierID)
	if err != nil {
		e.logger.ErrorContext(ctx, "quota check against unknown tier",
			logger.UserID(userID),
			logger.TierID(tierID),
			logger.Error(err),
		)
		return Decision{}, err
	}

	if userID == "" {
		return userNotFound(), nil
	}

	if e.users != nil {
		switch err := e.users.LookupUser(ctx, userID); {
		case errors.Is(err, usage.ErrUserNotFound):
			return userNotFound(), nil
		case err != nil:
			e.logger.WarnContext(ctx, "user lookup failed, continuing",
				logger.UserID(userID),
				logger.Error(err),
			)
		}
	}

	rec, err := e.usage.Get(ctx, userID)
	switch {
	case errors.Is(err, usage.ErrUserNotFound), errors.Is(err, usage.ErrInvalidUserID):
		return userNotFound(), nil
	case err != nil:
		e.logger.WarnContext(ctx, "usage read failed, allowing action",
			logger.UserID(userID),
			logger.TierID(tierID),
			logger.Error(err),
		)
		return degraded(), nil
	}

	return evaluate(plan, rec.Effective(e.now()), overageConsent), nil
}

// evaluate applies the monthly check, then the daily check.
func evaluate(plan plans.Plan, rec usage.Record, overageConsent bool) Decision {
	d := Decision{
		Allowed:          true,
		RemainingMonthly: plan.RemainingMonthly(rec.MonthlyCount),
		RemainingDaily:   plan.RemainingDaily(rec.DailyCount),
	}

	if plan.HasMonthlyLimit() && rec.MonthlyCount >= plan.MonthlyLimit {
		d.Allowed = overageConsent
		d.Reason = ReasonMonthlyLimit
		return d
	}

	if plan.HasDailyLimit() && rec.DailyCount >= plan.DailyLimit {
		d.Allowed = false
		d.Reason = ReasonDailyLimit
	}
	return d
}
