package redis

import "errors"

var (
	ErrFailedToParseURL  = errors.New("redis.errors.failed_to_parse_url")
	ErrNotReady          = errors.New("redis.errors.not_ready")
	ErrHealthcheckFailed = errors.New("redis.errors.healthcheck_failed")
)
