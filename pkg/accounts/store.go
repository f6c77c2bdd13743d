package accounts

import "context"

// FlagReader reads the raw subscription flag of an account. The value is
// returned as stored; callers normalise it.
type FlagReader interface {
	ReadSubscriptionFlag(ctx context.Context, accountID string) (any, error)
}

// CounterStore reads and writes per-feature usage counters.
type CounterStore interface {
	// ReadUsageCounter returns the counter and whether it exists.
	ReadUsageCounter(ctx context.Context, accountID, feature string) (int64, bool, error)
	WriteUsageCounter(ctx context.Context, accountID, feature string, value int64) error
}

// Incrementer is implemented by backends with an atomic per-field increment.
type Incrementer interface {
	IncrementUsageCounter(ctx context.Context, accountID, feature string, delta int64) (int64, error)
}

// Store is the full account store contract.
type Store interface {
	FlagReader
	CounterStore
}
