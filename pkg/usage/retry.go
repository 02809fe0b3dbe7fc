package usage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/meterkit/pkg/logger"
)

// RetryConfig bounds the retries of Increment.
type RetryConfig struct {
	Attempts  uint64        `env:"METER_INCREMENT_ATTEMPTS" envDefault:"4"`      // total attempts, including the first
	BaseDelay time.Duration `env:"METER_INCREMENT_BASE_DELAY" envDefault:"50ms"` // first backoff delay
	MaxDelay  time.Duration `env:"METER_INCREMENT_MAX_DELAY" envDefault:"1s"`    // cap for a single delay
}

// DefaultRetryConfig returns the defaults used when a field is zero.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:  4,
		BaseDelay: 50 * time.Millisecond,
		MaxDelay:  time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.Attempts == 0 {
		c.Attempts = d.Attempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	return c
}

type retryingStore struct {
	Store
	cfg RetryConfig
	log *slog.Logger
}

// WithRetry wraps s so that Increment retries ErrStorageUnavailable with
// exponential backoff. When every attempt fails the returned error matches
// ErrAccountingDeferred and the last storage error. Schema mismatches and
// validation errors are returned immediately.
func WithRetry(s Store, cfg RetryConfig, log *slog.Logger) Store {
	if log == nil {
		log = slog.Default()
	}
	return &retryingStore{Store: s, cfg: cfg.withDefaults(), log: log}
}

func (r *retryingStore) Increment(ctx context.Context, userID string, qty int64) (Record, error) {
	var (
		rec     Record
		lastErr error
		attempt int
	)

	b := retry.NewExponential(r.cfg.BaseDelay)
	b = retry.WithCappedDuration(r.cfg.MaxDelay, b)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithMaxRetries(r.cfg.Attempts-1, b)

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		var err error
		rec, err = r.Store.Increment(ctx, userID, qty)
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrStorageUnavailable) && !errors.Is(err, ErrSchemaMismatch) {
			r.log.WarnContext(ctx, "usage increment failed, retrying",
				logger.UserID(userID),
				logger.RetryCount(attempt),
				logger.Error(err),
			)
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return rec, nil
	}

	if errors.Is(lastErr, ErrStorageUnavailable) && !errors.Is(lastErr, ErrSchemaMismatch) {
		r.log.ErrorContext(ctx, "usage increment not recorded",
			logger.UserID(userID),
			logger.Quantity(qty),
			logger.RetryCount(attempt),
			logger.Error(err),
		)
		return Record{}, errors.Join(ErrAccountingDeferred, lastErr)
	}
	return Record{}, err
}
