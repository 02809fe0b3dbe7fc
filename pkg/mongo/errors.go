package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongo.errors.connect_failed")
	ErrEmptyConnectionURL     = errors.New("mongo.errors.empty_url")
	ErrHealthcheckFailed      = errors.New("mongo.errors.healthcheck_failed")
)
