package overage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog keeps charges in process memory.
type MemoryLog struct {
	mu      sync.RWMutex
	charges map[uuid.UUID]Charge
	order   []uuid.UUID
}

var _ Log = (*MemoryLog)(nil)

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{charges: make(map[uuid.UUID]Charge)}
}

func (l *MemoryLog) Append(ctx context.Context, c Charge) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.charges[c.ID]; ok {
		return nil
	}
	l.charges[c.ID] = c
	l.order = append(l.order, c.ID)
	return nil
}

func (l *MemoryLog) Get(ctx context.Context, id uuid.UUID) (Charge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.charges[id]
	if !ok {
		return Charge{}, ErrChargeNotFound
	}
	return c, nil
}

func (l *MemoryLog) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]Charge, error) {
	return l.filter(0, func(c Charge) bool {
		return c.UserID == userID && !c.Date.Before(from) && c.Date.Before(to)
	}), nil
}

func (l *MemoryLog) ListPending(ctx context.Context, limit int) ([]Charge, error) {
	return l.filter(normalizeLimit(limit), func(c Charge) bool {
		return c.Status == StatusPending
	}), nil
}

func (l *MemoryLog) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, at time.Time) (Charge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.charges[id]
	if !ok {
		return Charge{}, ErrChargeNotFound
	}
	updated, changed, err := transition(c, next, at)
	if err != nil {
		return c, err
	}
	if changed {
		l.charges[id] = updated
	}
	return updated, nil
}

func (l *MemoryLog) filter(limit int, keep func(Charge) bool) []Charge {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Charge
	for _, id := range l.order {
		c := l.charges[id]
		if !keep(c) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	slices.SortStableFunc(out, func(a, b Charge) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
