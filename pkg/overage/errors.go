package overage

import "errors"

var (
	ErrInvalidUnits      = errors.New("overage.errors.invalid_units")
	ErrInvalidUserID     = errors.New("overage.errors.invalid_user_id")
	ErrInvalidStatus     = errors.New("overage.errors.invalid_status")
	ErrInvalidTransition = errors.New("overage.errors.invalid_transition")
	ErrChargeNotFound    = errors.New("overage.errors.charge_not_found")
	ErrLogUnavailable    = errors.New("overage.errors.log_unavailable")
)
