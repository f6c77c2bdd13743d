// Package quota holds the static free-tier allowances of metered features.
//
// A Policy binds a feature id to the number of uses a Free caller gets before
// an upgrade is required. Policies are loaded once at startup from a Source and
// never change afterwards. A FreeAllowance of zero marks a feature as Pro-only.
//
// Looking up a feature that has no policy is a configuration fault, not a
// business outcome: Get returns ErrUnknownFeature and callers are expected to
// surface it as a server error. Require lets wiring code fail fast at startup
// for every feature it mounts.
//
// Basic usage:
//
//	reg, err := quota.NewRegistry(ctx, quota.NewInMemSource(quota.DefaultPolicies()...))
//	if err != nil {
//	    return err
//	}
//	if err := reg.Require("caption", "hashtags"); err != nil {
//	    return err
//	}
//	p, err := reg.Get("caption") // p.FreeAllowance == 1
//
// Policies can also come from a YAML file:
//
//	policies:
//	  - feature: caption
//	    free_allowance: 1
//	  - feature: brand-kit
//	    free_allowance: 0
//
//	reg, err := quota.NewRegistry(ctx, quota.NewFileSource("quota.yaml"))
package quota
