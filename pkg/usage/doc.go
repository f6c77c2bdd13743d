// Package usage counts how many times a caller used a feature.
//
// The Store has two backends behind one API. Authenticated callers are
// counted on the server, in the account store, one counter per feature.
// Anonymous callers are counted on the client: the count travels in a signed
// usage token and Increment returns the next token for the caller to keep.
//
// Reads degrade instead of failing. When the account store cannot be read in
// time the count is reported as zero (fail-open), which can grant a free use
// that should have been refused but never blocks a caller because of an
// outage. WithFailOpen(false) turns this into an ErrStoreUnavailable error.
package usage
