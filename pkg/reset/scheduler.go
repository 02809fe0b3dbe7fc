package reset

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

// Resetter is the part of usage.Store the scheduler needs.
type Resetter interface {
	ResetMonthly(ctx context.Context, next usage.Period) (int64, error)
}

// Result describes one boundary run.
type Result struct {
	Period  usage.Period `json:"period"`
	Reset   int64        `json:"reset"`   // records moved into Period
	Skipped bool         `json:"skipped"` // this process already handled Period
}

// Scheduler triggers monthly resets.
type Scheduler struct {
	store    Resetter
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	done usage.Period // last period handled by this process
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCheckInterval sets how often Run checks for a new period.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a scheduler over store.
func NewScheduler(store Resetter, opts ...Option) (*Scheduler, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	s := &Scheduler{
		store:    store,
		interval: time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("reset"))
	return s, nil
}

// OnBillingPeriodBoundary resets monthly counters into the current period.
// It calls the store at most once per period per process; a failed run is
// retried on the next call.
func (s *Scheduler) OnBillingPeriodBoundary(ctx context.Context) (Result, error) {
	period := usage.PeriodOf(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == period {
		return Result{Period: period, Skipped: true}, nil
	}

	start := s.now()
	n, err := s.store.ResetMonthly(ctx, period)
	if err != nil {
		s.logger.ErrorContext(ctx, "monthly reset failed",
			logger.Period(string(period)),
			logger.Error(err),
		)
		return Result{Period: period}, errors.Join(ErrResetFailed, err)
	}
	s.done = period

	s.logger.InfoContext(ctx, "monthly usage reset",
		logger.Period(string(period)),
		slog.Int64("records", n),
		logger.Duration(s.now().Sub(start)),
	)
	return Result{Period: period, Reset: n}, nil
}

// Run checks for a new period immediately and then on every interval until
// ctx is done. It blocks; the caller owns the goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reset scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one check; errors are already logged and retried next tick.
func (s *Scheduler) tick(ctx context.Context) {
	_, _ = s.OnBillingPeriodBoundary(ctx)
}
