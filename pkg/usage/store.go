package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/quotakit/pkg/accounts"
	"github.com/dmitrymomot/quotakit/pkg/identity"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/usagetoken"
)

const defaultTimeout = 2 * time.Second

// Increment is the outcome of a recorded use.
type Increment struct {
	Count int64
	// Token is the new usage token for anonymous callers, empty otherwise.
	Token string
}

type Store struct {
	counters   accounts.CounterStore
	codec      *usagetoken.Codec
	timeout    time.Duration
	failOpen   bool
	log        *slog.Logger
	onDegraded func(ctx context.Context, op string, err error)
}

type Option func(*Store)

// WithTimeout bounds every account store call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithFailOpen decides whether an unreadable counter counts as zero (true,
// the default) or fails the read.
func WithFailOpen(failOpen bool) Option {
	return func(s *Store) {
		s.failOpen = failOpen
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDegradedHook is called whenever the account store fails.
func WithDegradedHook(fn func(ctx context.Context, op string, err error)) Option {
	return func(s *Store) {
		s.onDegraded = fn
	}
}

// New creates a Store. counters serves authenticated callers, codec anonymous
// ones; both are required.
func New(counters accounts.CounterStore, codec *usagetoken.Codec, opts ...Option) (*Store, error) {
	if counters == nil {
		return nil, ErrNoAccountStore
	}
	if codec == nil {
		return nil, ErrNoCodec
	}

	s := &Store{
		counters: counters,
		codec:    codec,
		timeout:  defaultTimeout,
		failOpen: true,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Count returns how many times the caller used feature.
func (s *Store) Count(ctx context.Context, id identity.Identity, feature string) (int64, error) {
	if !id.IsAuthenticated() {
		return s.codec.Decode(id.Token(feature), feature), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, _, err := s.counters.ReadUsageCounter(ctx, id.AccountID, feature)
	if err != nil {
		err = errors.Join(ErrStoreUnavailable, err)
		s.degraded(ctx, "read", id, feature, err)
		if s.failOpen {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Increment records one use of feature. It only ever touches the counter of
// that feature.
func (s *Store) Increment(ctx context.Context, id identity.Identity, feature string) (Increment, error) {
	if !id.IsAuthenticated() {
		next := s.codec.Decode(id.Token(feature), feature) + 1
		tok, err := s.codec.Encode(feature, next)
		if err != nil {
			return Increment{}, err
		}
		return Increment{Count: next, Token: tok}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.increment(ctx, id.AccountID, feature)
	if err != nil {
		err = errors.Join(ErrStoreUnavailable, err)
		s.degraded(ctx, "increment", id, feature, err)
		return Increment{}, err
	}
	return Increment{Count: n}, nil
}

// Set overwrites the counter of an authenticated account.
func (s *Store) Set(ctx context.Context, accountID, feature string, value int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.counters.WriteUsageCounter(ctx, accountID, feature, value); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Merge raises the counter of an authenticated account to at least n and
// returns the resulting value. Unlike Count it never fails open: a counter
// that cannot be read is never overwritten.
func (s *Store) Merge(ctx context.Context, accountID, feature string, n int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	current, _, err := s.counters.ReadUsageCounter(ctx, accountID, feature)
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	if n <= current {
		return current, nil
	}
	if err := s.counters.WriteUsageCounter(ctx, accountID, feature, n); err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return n, nil
}

// Decode returns the count carried by an anonymous usage token.
func (s *Store) Decode(token, feature string) int64 {
	return s.codec.Decode(token, feature)
}

func (s *Store) increment(ctx context.Context, accountID, feature string) (int64, error) {
	if inc, ok := s.counters.(accounts.Incrementer); ok {
		return inc.IncrementUsageCounter(ctx, accountID, feature, 1)
	}

	// Not atomic: concurrent commits of one account may lose an update.
	n, _, err := s.counters.ReadUsageCounter(ctx, accountID, feature)
	if err != nil {
		return 0, fmt.Errorf("read before write: %w", err)
	}
	if err := s.counters.WriteUsageCounter(ctx, accountID, feature, n+1); err != nil {
		return 0, err
	}
	return n + 1, nil
}

func (s *Store) degraded(ctx context.Context, op string, id identity.Identity, feature string, err error) {
	if s.onDegraded != nil {
		s.onDegraded(ctx, op, err)
	}
	s.log.WarnContext(ctx, "account usage store degraded",
		slog.String("op", op),
		logger.AccountID(id.AccountID),
		logger.Feature(feature),
		slog.Bool("fail_open", s.failOpen),
		logger.Error(err),
	)
}
