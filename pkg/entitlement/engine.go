package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/quotakit/pkg/identity"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/quota"
	"github.com/dmitrymomot/quotakit/pkg/subscription"
	"github.com/dmitrymomot/quotakit/pkg/usage"
)

// Policies looks up free allowances.
type Policies interface {
	Get(feature string) (quota.Policy, error)
}

// StatusResolver resolves the tier of an authenticated account.
type StatusResolver interface {
	ResolveStatus(ctx context.Context, accountID string) (subscription.Status, error)
}

// UsageStore counts feature usage per caller.
type UsageStore interface {
	Count(ctx context.Context, id identity.Identity, feature string) (int64, error)
	Increment(ctx context.Context, id identity.Identity, feature string) (usage.Increment, error)
	Merge(ctx context.Context, accountID, feature string, n int64) (int64, error)
	Decode(token, feature string) int64
}

// Engine is safe for concurrent use. It keeps no per-caller state.
type Engine struct {
	policies Policies
	status   StatusResolver
	usage    UsageStore
	log      *slog.Logger
	metrics  *Metrics
	claim    bool
}

type Option func(*Engine)

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClaim enables Claim, the one-time transfer of anonymous usage to an
// account. Disabled by default.
func WithClaim(enabled bool) Option {
	return func(e *Engine) {
		e.claim = enabled
	}
}

func New(policies Policies, status StatusResolver, store UsageStore, opts ...Option) (*Engine, error) {
	if policies == nil || status == nil || store == nil {
		return nil, ErrMissingDependency
	}

	e := &Engine{
		policies: policies,
		status:   status,
		usage:    store,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CheckAndReserve decides whether id may use feature now. Denials are
// reported through the Verdict; an error means the decision could not be made
// (unknown feature, or a store failure when failing closed).
func (e *Engine) CheckAndReserve(ctx context.Context, id identity.Identity, feature string) (*Reservation, error) {
	start := time.Now()

	policy, err := e.policies.Get(feature)
	if err != nil {
		e.log.ErrorContext(ctx, "metered feature has no quota policy", logger.Feature(feature), logger.Error(err))
		return nil, err
	}

	res := &Reservation{
		Identity:  id,
		Feature:   feature,
		Status:    subscription.StatusFree,
		Allowance: policy.FreeAllowance,
	}

	if id.IsAuthenticated() {
		status, err := e.status.ResolveStatus(ctx, id.AccountID)
		if err != nil {
			return nil, fmt.Errorf("resolve subscription status: %w", err)
		}
		res.Status = status
	}

	switch {
	case res.Status.IsPro():
		res.Verdict = Allow()
	case policy.ProOnly():
		res.Verdict = Deny(ReasonSubscriptionRequired)
	default:
		used, err := e.usage.Count(ctx, id, feature)
		if err != nil {
			return nil, fmt.Errorf("read usage: %w", err)
		}
		res.Used = used
		if used < policy.FreeAllowance {
			res.Verdict = Allow()
		} else {
			res.Verdict = Deny(ReasonQuotaExceeded)
		}
	}

	took := time.Since(start)
	e.metrics.observeDecision(res, took)
	e.log.DebugContext(ctx, "entitlement checked",
		logger.Feature(feature),
		logger.Tier(res.Status.String()),
		logger.Verdict(res.Verdict.String(), string(res.Verdict.Reason)),
		logger.Usage(res.Used, res.Allowance),
		logger.Duration(took),
	)
	return res, nil
}

// Commit records one use of an allowed reservation. It must be called only
// after the metered operation succeeded and at most once per reservation.
// The tier is not re-checked: a Pro reservation is never counted.
func (e *Engine) Commit(ctx context.Context, res *Reservation) (*Receipt, error) {
	if res == nil || !res.Verdict.Allowed {
		return nil, ErrNotReserved
	}
	if err := ctx.Err(); err != nil {
		e.metrics.observeCommit(res.Feature, "canceled")
		return nil, err
	}
	if !res.committed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyCommitted
	}

	if res.Status.IsPro() {
		e.metrics.observeCommit(res.Feature, "skipped")
		return &Receipt{}, nil
	}

	inc, err := e.usage.Increment(ctx, res.Identity, res.Feature)
	if err != nil {
		res.committed.Store(false)
		e.metrics.observeCommit(res.Feature, "error")
		return nil, fmt.Errorf("record usage: %w", err)
	}

	e.metrics.observeCommit(res.Feature, "ok")
	return &Receipt{Counted: true, Count: inc.Count, Token: inc.Token}, nil
}

// Usage reports the standing of id for feature without changing anything.
func (e *Engine) Usage(ctx context.Context, id identity.Identity, feature string) (UsageInfo, error) {
	policy, err := e.policies.Get(feature)
	if err != nil {
		return UsageInfo{}, err
	}

	info := UsageInfo{Feature: feature, Tier: subscription.StatusFree.String(), Allowance: policy.FreeAllowance}
	if id.IsAuthenticated() {
		status, err := e.status.ResolveStatus(ctx, id.AccountID)
		if err != nil {
			return UsageInfo{}, fmt.Errorf("resolve subscription status: %w", err)
		}
		if status.IsPro() {
			info.Tier = status.String()
			info.Unlimited = true
			info.Remaining = -1
			return info, nil
		}
	}

	used, err := e.usage.Count(ctx, id, feature)
	if err != nil {
		return UsageInfo{}, fmt.Errorf("read usage: %w", err)
	}
	info.Used = used
	info.Remaining = max(policy.FreeAllowance-used, 0)
	return info, nil
}

// Claim moves the anonymous usage carried by anon onto accountID, raising
// each account counter to at least the anonymous count. Tokens of unknown
// features are ignored. It returns the resulting counters of the features it
// touched.
func (e *Engine) Claim(ctx context.Context, accountID string, anon identity.Identity) (map[string]int64, error) {
	if !e.claim {
		return nil, ErrClaimDisabled
	}
	if accountID == "" {
		return nil, ErrClaimNeedsAccount
	}

	merged := make(map[string]int64, len(anon.Tokens))
	var errs []error
	for feature, token := range anon.Tokens {
		if _, err := e.policies.Get(feature); err != nil {
			continue
		}
		n := e.usage.Decode(token, feature)
		if n == 0 {
			continue
		}
		total, err := e.usage.Merge(ctx, accountID, feature, n)
		if err != nil {
			errs = append(errs, fmt.Errorf("claim %s: %w", feature, err))
			continue
		}
		merged[feature] = total
	}

	if err := errors.Join(errs...); err != nil {
		e.log.WarnContext(ctx, "anonymous usage claim incomplete", logger.Event("usage_claim"), logger.AccountID(accountID), logger.Error(err))
		return merged, err
	}
	e.log.InfoContext(ctx, "anonymous usage claimed", logger.Event("usage_claim"), logger.AccountID(accountID), slog.Int("features", len(merged)))
	return merged, nil
}
