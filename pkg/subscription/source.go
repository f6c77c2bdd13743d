package subscription

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// FlagSource reads the raw subscription flag of an account.
// accounts.ErrAccountNotFound is a valid "not Pro" reading, any other error
// makes the source unavailable for this call.
type FlagSource interface {
	ReadSubscriptionFlag(ctx context.Context, accountID string) (any, error)
}

// SourceFunc adapts a function to FlagSource.
type SourceFunc func(ctx context.Context, accountID string) (any, error)

func (f SourceFunc) ReadSubscriptionFlag(ctx context.Context, accountID string) (any, error) {
	return f(ctx, accountID)
}

// CachedSource remembers successful readings of another source for a fixed
// time. It is meant to be used as a fallback: a recent Pro reading keeps a
// paying account working while the primary store is down.
type CachedSource struct {
	src   FlagSource
	cache *expirable.LRU[string, any]
}

// NewCachedSource caches up to size readings of src for ttl.
func NewCachedSource(src FlagSource, size int, ttl time.Duration) *CachedSource {
	return &CachedSource{
		src:   src,
		cache: expirable.NewLRU[string, any](size, nil, ttl),
	}
}

func (c *CachedSource) ReadSubscriptionFlag(ctx context.Context, accountID string) (any, error) {
	if v, ok := c.cache.Get(accountID); ok {
		return v, nil
	}

	v, err := c.src.ReadSubscriptionFlag(ctx, accountID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(accountID, v)
	return v, nil
}

// Invalidate drops the cached reading of an account, typically after a
// billing webhook changed it.
func (c *CachedSource) Invalidate(accountID string) {
	c.cache.Remove(accountID)
}

func (c *CachedSource) Len() int {
	return c.cache.Len()
}
