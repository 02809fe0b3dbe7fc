package reset

import "errors"

var (
	ErrStoreNil    = errors.New("reset.errors.store_nil")
	ErrResetFailed = errors.New("reset.errors.reset_failed")
)
