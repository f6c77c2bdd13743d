// Package redisstore is the Redis account store. Each account is one hash:
//
//	<prefix>:account:<id>  subscription  -> raw flag
//	                       usage:<feature> -> counter
//
// Increments use HINCRBY on the single feature field.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/quotakit/pkg/accounts"
)

const (
	defaultPrefix = "quotakit"
	flagField     = "subscription"
	usageField    = "usage:"
)

type Store struct {
	client redis.UniversalClient
	prefix string
}

var (
	_ accounts.Store       = (*Store)(nil)
	_ accounts.Incrementer = (*Store)(nil)
)

// New returns a Store that namespaces its keys with prefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(accountID string) string {
	return s.prefix + ":account:" + accountID
}

// SetSubscriptionFlag mirrors the subscription flag written by the billing
// integration.
func (s *Store) SetSubscriptionFlag(ctx context.Context, accountID string, flag any) error {
	if err := s.client.HSet(ctx, s.key(accountID), flagField, flag).Err(); err != nil {
		return fmt.Errorf("set subscription flag: %w", err)
	}
	return nil
}

func (s *Store) ReadSubscriptionFlag(ctx context.Context, accountID string) (any, error) {
	v, err := s.client.HGet(ctx, s.key(accountID), flagField).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, accounts.ErrAccountNotFound
		}
		return nil, fmt.Errorf("read subscription flag: %w", err)
	}
	return v, nil
}

func (s *Store) ReadUsageCounter(ctx context.Context, accountID, feature string) (int64, bool, error) {
	v, err := s.client.HGet(ctx, s.key(accountID), usageField+feature).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read usage counter: %w", err)
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("%w: %q", accounts.ErrInvalidCounter, v)
	}
	return n, true, nil
}

func (s *Store) WriteUsageCounter(ctx context.Context, accountID, feature string, value int64) error {
	if value < 0 {
		return fmt.Errorf("%w: %d", accounts.ErrInvalidCounter, value)
	}
	if err := s.client.HSet(ctx, s.key(accountID), usageField+feature, value).Err(); err != nil {
		return fmt.Errorf("write usage counter: %w", err)
	}
	return nil
}

func (s *Store) IncrementUsageCounter(ctx context.Context, accountID, feature string, delta int64) (int64, error) {
	n, err := s.client.HIncrBy(ctx, s.key(accountID), usageField+feature, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("increment usage counter: %w", err)
	}
	return n, nil
}
