package redisstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/accounts"
	"github.com/dmitrymomot/quotakit/pkg/accounts/redisstore"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redisstore.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, redisstore.New(client, "test")
}

func TestSubscriptionFlag(t *testing.T) {
	t.Parallel()

	_, store := setup(t)
	ctx := context.Background()

	_, err := store.ReadSubscriptionFlag(ctx, "acc-1")
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)

	require.NoError(t, store.SetSubscriptionFlag(ctx, "acc-1", 1))
	flag, err := store.ReadSubscriptionFlag(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "1", flag)
}

func TestUsageCounters(t *testing.T) {
	t.Parallel()

	mr, store := setup(t)
	ctx := context.Background()

	n, found, err := store.ReadUsageCounter(ctx, "acc-1", "caption")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, n)

	require.NoError(t, store.WriteUsageCounter(ctx, "acc-1", "bio", 7))

	n, err = store.IncrementUsageCounter(ctx, "acc-1", "caption", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, found, err = store.ReadUsageCounter(ctx, "acc-1", "caption")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, "7", mr.HGet("test:account:acc-1", "usage:bio"))
	assert.Equal(t, "1", mr.HGet("test:account:acc-1", "usage:caption"))
}

func TestCorruptCounter(t *testing.T) {
	t.Parallel()

	mr, store := setup(t)
	mr.HSet("test:account:acc-1", "usage:caption", "lots")

	_, _, err := store.ReadUsageCounter(context.Background(), "acc-1", "caption")
	assert.ErrorIs(t, err, accounts.ErrInvalidCounter)
}

func TestConcurrentIncrement(t *testing.T) {
	t.Parallel()

	_, store := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.IncrementUsageCounter(ctx, "acc-1", "caption", 1)
		}()
	}
	wg.Wait()

	n, _, err := store.ReadUsageCounter(ctx, "acc-1", "caption")
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	mr, store := setup(t)
	mr.Close()

	_, _, err := store.ReadUsageCounter(context.Background(), "acc-1", "caption")
	assert.Error(t, err)
}
