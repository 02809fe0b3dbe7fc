package usage

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Reader is the read side of a Store.
type Reader interface {
	// Get returns the effective record for userID, creating a zeroed record on first access.
	Get(ctx context.Context, userID string) (Record, error)
}

// Store persists usage records. Implementations must make Increment atomic per user.
type Store interface {
	Reader

	// Increment adds qty to the monthly counter and to the daily counter,
	// resetting the daily counter first if its anchor is not today.
	Increment(ctx context.Context, userID string, qty int64) (Record, error)

	// ResetMonthly zeroes monthly counters of all records not already in next
	// and moves them to next. Returns the number of records reset.
	ResetMonthly(ctx context.Context, next Period) (int64, error)
}

// FeatureGate reports whether the daily-tracking structures exist.
type FeatureGate interface {
	DailyTrackingAvailable() bool
}

type alwaysOn struct{}

func (alwaysOn) DailyTrackingAvailable() bool { return true }

// Option configures a Store backend.
type Option func(*options)

type options struct {
	now           func() time.Time
	gate          FeatureGate
	logger        *slog.Logger
	keyPrefix     string
	scanBatchSize int64
}

func defaultOptions() *options {
	return &options{
		now:           time.Now,
		gate:          alwaysOn{},
		logger:        slog.Default(),
		keyPrefix:     DefaultRedisKeyPrefix,
		scanBatchSize: 1000,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithClock overrides the time source used for anchors and periods.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithFeatureGate sets the gate consulted before touching daily counters.
func WithFeatureGate(g FeatureGate) Option {
	return func(o *options) {
		if g != nil {
			o.gate = g
		}
	}
}

// WithLogger sets the logger used by the backend.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	return nil
}

func validateIncrement(userID string, qty int64) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// WithKeyPrefix overrides DefaultRedisKeyPrefix for the Redis backend.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithScanBatchSize sets the SCAN COUNT hint used by the Redis backend on reset.
func WithScanBatchSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.scanBatchSize = n
		}
	}
}
