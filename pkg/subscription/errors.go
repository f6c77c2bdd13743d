package subscription

import "errors"

var ErrStatusUnavailable = errors.New("subscription.errors.status_unavailable")
