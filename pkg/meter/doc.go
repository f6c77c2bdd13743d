// Package meter puts the entitlement check in front of HTTP handlers.
//
// Gate.Metered wraps a handler that performs a metered operation:
//
//	r.With(gate.Metered("caption")).Post("/v1/tools/caption", generateCaption)
//
// The caller is resolved, the entitlement is checked and a denied caller gets
// a 402 upgrade_required JSON body without the handler ever running. Allowed
// calls run with a buffered response; the use is committed only when the
// handler answered with a 2xx status and the request was not cancelled. For
// anonymous callers the commit also sets the feature's usage cookie.
//
// Handlers that need finer control can use Check and Commit directly.
package meter
