package usagecache

import "errors"

var (
	ErrMiss            = errors.New("usagecache.errors.miss")
	ErrInvalidTTL      = errors.New("usagecache.errors.invalid_ttl")
	ErrInvalidCapacity = errors.New("usagecache.errors.invalid_capacity")
)
