package overage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/plans"
)

// Gate reports whether the charge log exists. *schema.Guard implements it.
type Gate interface {
	OverageLoggingAvailable() bool
}

// PlanLookup resolves tier identifiers. *plans.Registry implements it.
type PlanLookup interface {
	Get(tierID string) (plans.Plan, error)
}

type openGate struct{}

func (openGate) OverageLoggingAvailable() bool { return true }

// Biller creates overage charges.
type Biller struct {
	plans    PlanLookup
	log      Log
	gate     Gate
	reverify func(ctx context.Context)
	currency currency.Unit
	now      func() time.Time
	newID    func() uuid.UUID
	logger   *slog.Logger
}

// Option configures a Biller.
type Option func(*Biller)

func WithGate(g Gate) Option {
	return func(b *Biller) {
		if g != nil {
			b.gate = g
		}
	}
}

// WithReverify registers a hook called after the log turned out to be
// missing at runtime.
func WithReverify(fn func(ctx context.Context)) Option {
	return func(b *Biller) {
		b.reverify = fn
	}
}

// WithCurrency sets the currency of plan rates. Defaults to USD.
func WithCurrency(u currency.Unit) Option {
	return func(b *Biller) {
		b.currency = u
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Biller) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator replaces uuid.New. Intended for tests.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(b *Biller) {
		if fn != nil {
			b.newID = fn
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Biller) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBiller creates a biller writing to log.
func NewBiller(pl PlanLookup, log Log, opts ...Option) *Biller {
	b := &Biller{
		plans:    pl,
		log:      log,
		gate:     openGate{},
		currency: currency.USD,
		now:      time.Now,
		newID:    uuid.New,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(logger.Component("overage"))
	return b
}

// RecordOverage appends a pending charge of units × the tier's overage rate.
// Usage counters are not touched. When the log is missing the zero Charge
// and a nil error are returned.
func (b *Biller) RecordOverage(ctx context.Context, userID, tierID string, units int64) (Charge, error) {
	if units <= 0 {
		return Charge{}, ErrInvalidUnits
	}
	if userID == "" {
		return Charge{}, ErrInvalidUserID
	}
	plan, err := b.plans.Get(tierID)
	if err != nil {
		return Charge{}, err
	}

	if !b.gate.OverageLoggingAvailable() {
		b.alert(ctx, userID, tierID, units, plan.OverageCost(units), nil)
		return Charge{}, nil
	}

	now := b.now().UTC()
	y, m, d := now.Date()
	c := Charge{
		ID:        b.newID(),
		UserID:    userID,
		TierID:    tierID,
		UnitCount: units,
		UnitPrice: plan.OverageRate,
		Amount:    plan.OverageCost(units),
		Currency:  b.currency,
		Date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := b.log.Append(ctx, c); err != nil {
		if errors.Is(err, ErrLogUnavailable) {
			b.alert(ctx, userID, tierID, units, c.Amount, err)
			if b.reverify != nil {
				b.reverify(ctx)
			}
			return Charge{}, nil
		}
		return Charge{}, err
	}

	b.logger.InfoContext(ctx, "overage charge recorded",
		logger.ChargeID(c.ID),
		logger.UserID(userID),
		logger.TierID(tierID),
		logger.Quantity(units),
		slog.String("amount", c.Amount.StringFixed(2)),
	)
	return c, nil
}

// UpdateStatus applies a billing provider callback.
func (b *Biller) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (Charge, error) {
	c, err := b.log.UpdateStatus(ctx, id, next, b.now().UTC())
	if err != nil {
		b.logger.WarnContext(ctx, "charge status update rejected",
			logger.ChargeID(id),
			slog.String("status", string(next)),
			logger.Error(err),
		)
		return c, err
	}
	return c, nil
}

// PendingCharges lists charges waiting to be invoiced.
func (b *Biller) PendingCharges(ctx context.Context, limit int) ([]Charge, error) {
	return b.log.ListPending(ctx, limit)
}

// Charges lists the user's charges dated within [from, to).
func (b *Biller) Charges(ctx context.Context, userID string, from, to time.Time) ([]Charge, error) {
	return b.log.ListByUser(ctx, userID, from, to)
}

func (b *Biller) alert(ctx context.Context, userID, tierID string, units int64, amount decimal.Decimal, err error) {
	b.logger.ErrorContext(ctx, "overage not billed: charge log unavailable",
		logger.Alert("overage_unbilled"),
		logger.UserID(userID),
		logger.TierID(tierID),
		logger.Quantity(units),
		slog.String("amount", amount.StringFixed(2)),
		logger.Error(err),
	)
}
