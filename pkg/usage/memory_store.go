package usage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. A single mutex serialises
// mutations, which makes Increment atomic per user.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	opts    *options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		opts:    applyOptions(opts),
	}
}

// Get returns the effective record, creating it on first access.
func (s *MemoryStore) Get(ctx context.Context, userID string) (Record, error) {
	if err := validateUserID(userID); err != nil {
		return Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return Record{}, unavailable(err)
	}

	now := s.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.lookup(userID, now)
	return rec.Effective(now), nil
}

// Increment atomically adds qty to the user's counters.
func (s *MemoryStore) Increment(ctx context.Context, userID string, qty int64) (Record, error) {
	if err := validateIncrement(userID, qty); err != nil {
		return Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return Record{}, unavailable(err)
	}

	now := s.opts.now()
	trackDaily := s.opts.gate.DailyTrackingAvailable()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.lookup(userID, now)
	rec.MonthlyCount += qty
	if trackDaily {
		today := Day(now)
		if rec.DailyAnchor.Equal(today) {
			rec.DailyCount += qty
		} else {
			rec.DailyCount = qty
			rec.DailyAnchor = today
		}
	}
	rec.UpdatedAt = now

	out := *rec
	if !trackDaily {
		out.DailyCount = 0
	}
	return out, nil
}

// ResetMonthly zeroes monthly counters not already in next.
func (s *MemoryStore) ResetMonthly(ctx context.Context, next Period) (int64, error) {
	if !next.Valid() {
		return 0, ErrInvalidPeriod
	}
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}

	now := s.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, rec := range s.records {
		if rec.BillingPeriod == next {
			continue
		}
		rec.MonthlyCount = 0
		rec.BillingPeriod = next
		rec.UpdatedAt = now
		n++
	}
	return n, nil
}

// Must be called with lock held.
func (s *MemoryStore) lookup(userID string, now time.Time) *Record {
	rec, ok := s.records[userID]
	if !ok {
		r := newRecord(userID, now)
		rec = &r
		s.records[userID] = rec
	}
	return rec
}
