package schema

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/logger"
)

// Feature names a storage-dependent capability.
type Feature string

const (
	DailyTracking  Feature = "daily_tracking"
	OverageLogging Feature = "overage_logging"
)

// Check is one probe in a feature's chain.
type Check struct {
	Name     string
	Disabled bool
	Probe    func(ctx context.Context) error
}

// Disable returns a copy of c that Verify skips.
func (c Check) Disable() Check {
	c.Disabled = true
	return c
}

// Func wraps an arbitrary probe, for example a Redis ping or a Mongo
// collection lookup.
func Func(name string, probe func(ctx context.Context) error) Check {
	return Check{Name: name, Probe: probe}
}

// Capabilities is the outcome of a verification.
type Capabilities struct {
	DailyTracking  bool `json:"daily_tracking"`
	OverageLogging bool `json:"overage_logging"`
}

// Guard holds the latest verification outcome. The zero state, before the
// first Verify, reports every feature as available.
type Guard struct {
	chains map[Feature][]Check
	log    *slog.Logger

	mu      sync.Mutex // serialises Verify runs
	daily   atomic.Bool
	overage atomic.Bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithChecks appends checks to the chain of feature.
func WithChecks(feature Feature, checks ...Check) Option {
	return func(g *Guard) {
		g.chains[feature] = append(g.chains[feature], checks...)
	}
}

// WithLogger sets the logger for verification results.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGuard creates a guard with the given check chains.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		chains: make(map[Feature][]Check),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(logger.Component("schema"))
	g.daily.Store(true)
	g.overage.Store(true)
	return g
}

// Verify runs every chain and stores the result. A chain whose checks all
// failed with ErrProbeFailed is inconclusive and keeps its previous state.
func (g *Guard) Verify(ctx context.Context) Capabilities {
	g.mu.Lock()
	defer g.mu.Unlock()

	caps := Capabilities{
		DailyTracking:  g.run(ctx, DailyTracking, g.daily.Load()),
		OverageLogging: g.run(ctx, OverageLogging, g.overage.Load()),
	}
	g.daily.Store(caps.DailyTracking)
	g.overage.Store(caps.OverageLogging)

	g.log.InfoContext(ctx, "schema verified",
		slog.Bool(string(DailyTracking), caps.DailyTracking),
		slog.Bool(string(OverageLogging), caps.OverageLogging),
	)
	return caps
}

// Reverify re-runs the chains after a runtime failure and logs any change.
func (g *Guard) Reverify(ctx context.Context) Capabilities {
	before := g.Capabilities()
	after := g.Verify(ctx)
	if before != after {
		g.log.WarnContext(ctx, "schema capabilities changed",
			slog.Any("before", before),
			slog.Any("after", after),
		)
	}
	return after
}

// Capabilities returns the last verification outcome.
func (g *Guard) Capabilities() Capabilities {
	return Capabilities{
		DailyTracking:  g.daily.Load(),
		OverageLogging: g.overage.Load(),
	}
}

func (g *Guard) DailyTrackingAvailable() bool  { return g.daily.Load() }
func (g *Guard) OverageLoggingAvailable() bool { return g.overage.Load() }

// Watch re-verifies every interval while any feature is unavailable, so a
// reduced feature set recovers once the schema is migrated or the probe
// target is reachable again. It blocks until ctx is done.
func (g *Guard) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if caps := g.Capabilities(); !caps.DailyTracking || !caps.OverageLogging {
				g.Reverify(ctx)
			}
		}
	}
}

func (g *Guard) run(ctx context.Context, feature Feature, current bool) bool {
	enabled, absent := 0, 0
	for _, c := range g.chains[feature] {
		if c.Disabled || c.Probe == nil {
			continue
		}
		enabled++
		err := c.probe(ctx)
		if err == nil {
			g.log.DebugContext(ctx, "schema check passed", logger.Feature(string(feature)), slog.String("check", c.Name))
			return true
		}
		g.log.DebugContext(ctx, "schema check failed",
			logger.Feature(string(feature)),
			slog.String("check", c.Name),
			logger.Error(err),
		)
		if !errors.Is(err, ErrProbeFailed) {
			absent++
		}
	}
	if enabled == 0 {
		return true
	}
	if absent == 0 {
		g.log.WarnContext(ctx, "schema checks inconclusive, keeping last known state",
			logger.Feature(string(feature)),
			slog.Bool("available", current),
		)
		return current
	}
	g.log.WarnContext(ctx, "feature unavailable, running with reduced feature set",
		logger.Feature(string(feature)),
		slog.Int("checks", enabled),
	)
	return false
}

// probe runs the check, converting a panic into an error.
func (c Check) probe(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return c.Probe(ctx)
}
