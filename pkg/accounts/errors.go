package accounts

import "errors"

var (
	ErrAccountNotFound = errors.New("accounts.errors.account_not_found")
	ErrInvalidCounter  = errors.New("accounts.errors.invalid_counter")
)
