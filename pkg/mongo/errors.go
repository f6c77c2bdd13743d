package mongo

import "errors"

var (
	ErrFailedToConnect   = errors.New("mongo.errors.failed_to_connect")
	ErrHealthcheckFailed = errors.New("mongo.errors.healthcheck_failed")
)
