// Package subscription resolves the tier of an authenticated account.
//
// The account store keeps a raw subscription flag whose encoding depends on who
// wrote it: a boolean, a number, or a string such as "true" or "1". Normalize
// is the single place where such a value becomes a strict bool.
//
// A Provider reads the flag from a primary source and any number of fallback
// sources (a mirrored flag, a cache) concurrently. The most permissive reading
// wins: one source saying Pro is enough. When no source can be read at all the
// Provider fails open and reports Free, unless configured otherwise.
//
//	provider := subscription.NewProvider(pgStore,
//	    subscription.WithFallback(subscription.NewCachedSource(redisMirror, 10_000, time.Minute)),
//	    subscription.WithTimeout(500*time.Millisecond),
//	    subscription.WithLogger(log),
//	)
//	status, err := provider.ResolveStatus(ctx, accountID)
//
// Resolution has no side effects and is idempotent for an unchanged account.
package subscription
