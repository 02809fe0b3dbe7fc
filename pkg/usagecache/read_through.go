package usagecache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

// ReadThrough is a usage.Store that consults a Cache before the wrapped store
// on reads. Writes always go to the store first.
type ReadThrough struct {
	store usage.Store
	cache Cache
	log   *slog.Logger
	now   func() time.Time
	group singleflight.Group
}

var _ usage.Store = (*ReadThrough)(nil)

// Option configures a ReadThrough.
type Option func(*ReadThrough)

// WithLogger sets the logger used for cache failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *ReadThrough) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock sets the time source used to roll daily counts of cached entries.
func WithClock(now func() time.Time) Option {
	return func(r *ReadThrough) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReadThrough wraps store with cache. A nil cache disables caching.
func NewReadThrough(store usage.Store, cache Cache, opts ...Option) *ReadThrough {
	if cache == nil {
		cache = NoOp{}
	}
	r := &ReadThrough{
		store: store,
		cache: cache,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("usagecache"))
	return r
}

// Get returns the cached record when fresh, otherwise loads it from the store
// and populates the cache. Concurrent misses for one user share a single load.
func (r *ReadThrough) Get(ctx context.Context, userID string) (usage.Record, error) {
	rec, err := r.cache.Get(ctx, userID)
	switch {
	case err == nil:
		return rec.Effective(r.now()), nil
	case !errors.Is(err, ErrMiss):
		r.log.WarnContext(ctx, "usage cache read failed", logger.UserID(userID), logger.Error(err))
	}

	// The shared load outlives the caller that started it; each caller
	// stops waiting on its own context instead.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(userID, func() (any, error) {
		rec, err := r.store.Get(loadCtx, userID)
		if err != nil {
			return usage.Record{}, err
		}
		r.put(loadCtx, rec)
		return rec, nil
	})

	select {
	case <-ctx.Done():
		return usage.Record{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return usage.Record{}, res.Err
		}
		return res.Val.(usage.Record), nil
	}
}

// Increment is applied to the store; the fresh record then replaces the
// cached one.
func (r *ReadThrough) Increment(ctx context.Context, userID string, qty int64) (usage.Record, error) {
	rec, err := r.store.Increment(ctx, userID, qty)
	if err != nil {
		return usage.Record{}, err
	}
	r.put(ctx, rec)
	return rec, nil
}

// ResetMonthly resets the store and purges the cache.
func (r *ReadThrough) ResetMonthly(ctx context.Context, next usage.Period) (int64, error) {
	n, err := r.store.ResetMonthly(ctx, next)
	if err != nil {
		return n, err
	}
	if err := r.cache.Purge(ctx); err != nil {
		r.log.WarnContext(ctx, "usage cache purge failed", logger.Period(string(next)), logger.Error(err))
	}
	return n, nil
}

func (r *ReadThrough) put(ctx context.Context, rec usage.Record) {
	err := r.cache.Set(ctx, rec)
	if err == nil {
		return
	}
	r.log.WarnContext(ctx, "usage cache write failed", logger.UserID(rec.UserID), logger.Error(err))
	if err := r.cache.Invalidate(ctx, rec.UserID); err != nil {
		r.log.WarnContext(ctx, "usage cache invalidate failed", logger.UserID(rec.UserID), logger.Error(err))
	}
}
