package overage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Log stores charges.
type Log interface {
	Append(ctx context.Context, c Charge) error
	// Get returns ErrChargeNotFound for unknown IDs.
	Get(ctx context.Context, id uuid.UUID) (Charge, error)
	// ListByUser returns the user's charges dated within [from, to), oldest first.
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]Charge, error)
	// ListPending returns at most limit pending charges, oldest first.
	ListPending(ctx context.Context, limit int) ([]Charge, error)
	// UpdateStatus moves a charge forward. Repeating the current status is a
	// no-op; moving backwards fails with ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, next Status, at time.Time) (Charge, error)
}

// DefaultListLimit bounds ListPending when limit is not positive.
const DefaultListLimit = 100

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// transition validates a status change of c and returns the updated charge
// and whether anything changed.
func transition(c Charge, next Status, at time.Time) (Charge, bool, error) {
	if !next.Valid() {
		return c, false, ErrInvalidStatus
	}
	if c.Status == next {
		return c, false, nil
	}
	if !c.Status.CanTransitionTo(next) {
		return c, false, ErrInvalidTransition
	}
	c.Status = next
	c.UpdatedAt = at
	return c, true, nil
}
