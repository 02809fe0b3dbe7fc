package meter

import (
	"log/slog"
	"time"

	"golang.org/x/text/currency"

	"github.com/dmitrymomot/meterkit/pkg/overage"
	"github.com/dmitrymomot/meterkit/pkg/plans"
	"github.com/dmitrymomot/meterkit/pkg/quota"
	"github.com/dmitrymomot/meterkit/pkg/schema"
	"github.com/dmitrymomot/meterkit/pkg/usage"
	"github.com/dmitrymomot/meterkit/pkg/usagecache"
)

// Config holds engine settings loaded from the environment.
type Config struct {
	CurrencyCode string `env:"METER_CURRENCY" envDefault:"USD"` // ISO 4217 code of plan rates
	Retry        usage.RetryConfig
}

// Currency parses CurrencyCode, falling back to USD.
func (c Config) Currency() currency.Unit {
	unit, err := currency.ParseISO(c.CurrencyCode)
	if err != nil {
		return currency.USD
	}
	return unit
}

// Deps are the collaborators of an Engine. Plans and Store are required.
type Deps struct {
	Plans   *plans.Registry
	Store   usage.Store
	Cache   usagecache.Cache // optional read cache
	Charges overage.Log      // defaults to an in-memory log
	Guard   *schema.Guard    // defaults to a guard without checks
	Users   quota.UserLookup // optional identity check
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newCachedStore(store usage.Store, cache usagecache.Cache, o *options) usage.Store {
	return usagecache.NewReadThrough(store, cache,
		usagecache.WithLogger(o.logger),
		usagecache.WithClock(o.now),
	)
}
