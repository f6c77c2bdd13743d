// Package entitlement decides whether a caller may use a metered feature and
// records the use once it succeeded.
//
// Every metered call goes through two steps:
//
//	res, err := engine.CheckAndReserve(ctx, id, "caption")
//	if err != nil {
//	    // configuration fault or, when failing closed, an unavailable store
//	}
//	if !res.Verdict.Allowed {
//	    // respond with an upgrade prompt, res.Verdict.Reason says why
//	}
//	out, err := generate(ctx)
//	if err != nil {
//	    return err // nothing is counted
//	}
//	receipt, err := engine.Commit(ctx, res)
//
// The decision for a feature with free allowance A:
//
//   - Pro accounts are always allowed; their usage is neither read nor counted.
//   - A == 0: Free callers are denied with ReasonSubscriptionRequired.
//   - otherwise Free callers are allowed while their count is below A and
//     denied with ReasonQuotaExceeded after that.
//
// The check and the commit are not one transaction. Two concurrent calls of
// the same caller can both be allowed and both be counted, overrunning the
// allowance by one. This is accepted.
package entitlement
