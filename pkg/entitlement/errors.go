package entitlement

import "errors"

var (
	ErrNotReserved       = errors.New("entitlement.errors.not_reserved")
	ErrAlreadyCommitted  = errors.New("entitlement.errors.already_committed")
	ErrClaimDisabled     = errors.New("entitlement.errors.claim_disabled")
	ErrClaimNeedsAccount = errors.New("entitlement.errors.claim_needs_account")
	ErrMissingDependency = errors.New("entitlement.errors.missing_dependency")
)
