package usage

import "errors"

var (
	ErrStoreUnavailable = errors.New("usage.errors.store_unavailable")
	ErrNoCodec          = errors.New("usage.errors.no_codec")
	ErrNoAccountStore   = errors.New("usage.errors.no_account_store")
)
