package usagetoken

import "errors"

var (
	ErrNoSecret         = errors.New("usagetoken.no_secret")
	ErrSecretTooShort   = errors.New("usagetoken.secret_too_short")
	ErrInvalidFormat    = errors.New("usagetoken.invalid_format")
	ErrInvalidSignature = errors.New("usagetoken.invalid_signature")
	ErrFeatureMismatch  = errors.New("usagetoken.feature_mismatch")
	ErrInvalidCount     = errors.New("usagetoken.invalid_count")
)
