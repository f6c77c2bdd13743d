package quota

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Registry is an immutable set of policies keyed by feature id.
// It is safe for concurrent use.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry loads and validates all policies from src.
func NewRegistry(ctx context.Context, src Source) (*Registry, error) {
	if src == nil {
		return nil, errors.Join(ErrFailedToLoadPolicies, errors.New("nil source"))
	}

	list, err := src.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrInvalidPolicy) {
			return nil, err
		}
		return nil, errors.Join(ErrFailedToLoadPolicies, err)
	}

	policies := make(map[string]Policy, len(list))
	for _, p := range list {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := policies[p.Feature]; dup {
			return nil, fmt.Errorf("%w: duplicate feature %q", ErrInvalidPolicy, p.Feature)
		}
		policies[p.Feature] = p
	}

	return &Registry{policies: policies}, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(ctx context.Context, src Source) *Registry {
	r, err := NewRegistry(ctx, src)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the policy of feature or ErrUnknownFeature.
func (r *Registry) Get(feature string) (Policy, error) {
	p, ok := r.policies[feature]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
	return p, nil
}

// Require checks that every feature has a policy.
func (r *Registry) Require(features ...string) error {
	var errs []error
	for _, f := range features {
		if _, err := r.Get(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Features returns all feature ids in lexical order.
func (r *Registry) Features() []string {
	return slices.Sorted(maps.Keys(r.policies))
}

func (r *Registry) Len() int {
	return len(r.policies)
}
