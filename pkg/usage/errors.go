package usage

import "errors"

var (
	ErrInvalidUserID   = errors.New("usage: invalid user id")
	ErrInvalidQuantity = errors.New("usage: quantity must be positive")
	ErrInvalidPeriod   = errors.New("usage: invalid billing period")
	ErrUserNotFound    = errors.New("usage: user not found")

	// ErrStorageUnavailable classifies every backend failure (network, timeout, driver).
	ErrStorageUnavailable = errors.New("usage: storage unavailable")

	// ErrSchemaMismatch is joined with ErrStorageUnavailable when the backend
	// reports a missing table or column. It is not retried.
	ErrSchemaMismatch = errors.New("usage: storage schema mismatch")

	// ErrAccountingDeferred is returned when an increment could not be recorded
	// after all retries. The action itself must not be blocked.
	ErrAccountingDeferred = errors.New("usage: accounting deferred")
)

func unavailable(err error) error {
	return errors.Join(ErrStorageUnavailable, err)
}
