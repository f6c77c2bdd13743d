package identity

import "errors"

var (
	ErrNoCredentials      = errors.New("identity.errors.no_credentials")
	ErrInvalidCredentials = errors.New("identity.errors.invalid_credentials")
	ErrSecretTooShort     = errors.New("identity.errors.secret_too_short")
	ErrMissingSubject     = errors.New("identity.errors.missing_subject")
)
