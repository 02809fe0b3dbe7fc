package usagecache

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/usage"
)

const (
	// DefaultTTL is used when a constructor receives a zero TTL.
	DefaultTTL = 2 * time.Minute

	// MaxTTL is the exclusive upper bound for a TTL: the smallest quota
	// cadence is one day.
	MaxTTL = 24 * time.Hour
)

// Cache stores usage records by user ID.
type Cache interface {
	// Get returns ErrMiss when nothing fresh is stored for userID.
	Get(ctx context.Context, userID string) (usage.Record, error)
	Set(ctx context.Context, rec usage.Record) error
	Invalidate(ctx context.Context, userID string) error
	// Purge drops every entry.
	Purge(ctx context.Context) error
}

func normalizeTTL(ttl time.Duration) (time.Duration, error) {
	switch {
	case ttl == 0:
		return DefaultTTL, nil
	case ttl < 0, ttl >= MaxTTL:
		return 0, errors.Join(ErrInvalidTTL, errors.New("ttl must be positive and shorter than 24h"))
	}
	return ttl, nil
}

// NoOp is a Cache that stores nothing.
type NoOp struct{}

var _ Cache = NoOp{}

func (NoOp) Get(context.Context, string) (usage.Record, error) { return usage.Record{}, ErrMiss }
func (NoOp) Set(context.Context, usage.Record) error           { return nil }
func (NoOp) Invalidate(context.Context, string) error          { return nil }
func (NoOp) Purge(context.Context) error                       { return nil }
