package quota

import "errors"

var (
	ErrUnknownFeature       = errors.New("quota.errors.unknown_feature")
	ErrInvalidPolicy        = errors.New("quota.errors.invalid_policy")
	ErrFailedToLoadPolicies = errors.New("quota.errors.failed_to_load_policies")
)
