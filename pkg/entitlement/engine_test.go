package entitlement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/accounts"
	"github.com/dmitrymomot/quotakit/pkg/entitlement"
	"github.com/dmitrymomot/quotakit/pkg/identity"
	"github.com/dmitrymomot/quotakit/pkg/quota"
	"github.com/dmitrymomot/quotakit/pkg/subscription"
	"github.com/dmitrymomot/quotakit/pkg/usage"
	"github.com/dmitrymomot/quotakit/pkg/usagetoken"
)

const secret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	engine   *entitlement.Engine
	accounts *accounts.Memory
	usage    *usage.Store
}

func registry(t *testing.T) *quota.Registry {
	t.Helper()

	return quota.MustNewRegistry(context.Background(), quota.NewInMemSource(
		quota.Policy{Feature: "caption", FreeAllowance: 1},
		quota.Policy{Feature: "hashtags", FreeAllowance: 1},
		quota.Policy{Feature: "script", FreeAllowance: 2},
		quota.Policy{Feature: "brand-kit", FreeAllowance: 0},
	))
}

func setup(t *testing.T, opts ...entitlement.Option) fixture {
	t.Helper()

	mem := accounts.NewMemory()
	codec, err := usagetoken.New([]string{secret})
	require.NoError(t, err)
	store, err := usage.New(mem, codec)
	require.NoError(t, err)

	engine, err := entitlement.New(registry(t), subscription.NewProvider(mem), store, opts...)
	require.NoError(t, err)

	return fixture{engine: engine, accounts: mem, usage: store}
}

type mockUsage struct {
	mock.Mock
}

func (m *mockUsage) Count(ctx context.Context, id identity.Identity, feature string) (int64, error) {
	args := m.Called(ctx, id, feature)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsage) Increment(ctx context.Context, id identity.Identity, feature string) (usage.Increment, error) {
	args := m.Called(ctx, id, feature)
	return args.Get(0).(usage.Increment), args.Error(1)
}

func (m *mockUsage) Merge(ctx context.Context, accountID, feature string, n int64) (int64, error) {
	args := m.Called(ctx, accountID, feature, n)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsage) Decode(token, feature string) int64 {
	return m.Called(token, feature).Get(0).(int64)
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := entitlement.New(nil, subscription.NewProvider(nil), &mockUsage{})
	assert.ErrorIs(t, err, entitlement.ErrMissingDependency)
}

func TestProIsNeverDenied(t *testing.T) {
	t.Parallel()

	mem := accounts.NewMemory()
	mem.SetSubscriptionFlag("acc-pro", "1")
	store := &mockUsage{}

	engine, err := entitlement.New(registry(t), subscription.NewProvider(mem), store)
	require.NoError(t, err)

	ctx := context.Background()
	pro := identity.Authenticated("acc-pro")
	for _, feature := range []string{"caption", "brand-kit", "script"} {
		for range 5 {
			res, err := engine.CheckAndReserve(ctx, pro, feature)
			require.NoError(t, err)
			assert.True(t, res.Verdict.Allowed)
			assert.Equal(t, subscription.StatusPro, res.Status)

			receipt, err := engine.Commit(ctx, res)
			require.NoError(t, err)
			assert.False(t, receipt.Counted)
		}
	}

	store.AssertNotCalled(t, "Count", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
}

func TestFreeQuotaIsMonotonic(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	acc := identity.Authenticated("acc-1")

	var verdicts []bool
	for range 5 {
		res, err := f.engine.CheckAndReserve(ctx, acc, "script")
		require.NoError(t, err)
		verdicts = append(verdicts, res.Verdict.Allowed)
		if res.Verdict.Allowed {
			_, err = f.engine.Commit(ctx, res)
			require.NoError(t, err)
		} else {
			assert.Equal(t, entitlement.ReasonQuotaExceeded, res.Verdict.Reason)
		}
	}

	assert.Equal(t, []bool{true, true, false, false, false}, verdicts)
	assert.Equal(t, map[string]int64{"script": 2}, f.accounts.Usage("acc-1"))
}

func TestFeatureIsolation(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	acc := identity.Authenticated("acc-1")

	res, err := f.engine.CheckAndReserve(ctx, acc, "caption")
	require.NoError(t, err)
	_, err = f.engine.Commit(ctx, res)
	require.NoError(t, err)

	res, err = f.engine.CheckAndReserve(ctx, acc, "hashtags")
	require.NoError(t, err)
	assert.True(t, res.Verdict.Allowed)
	assert.Zero(t, res.Used)

	assert.Equal(t, map[string]int64{"caption": 1}, f.accounts.Usage("acc-1"))
}

func TestNoCommitAfterDeny(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	acc := identity.Authenticated("acc-1")
	require.NoError(t, f.accounts.WriteUsageCounter(ctx, "acc-1", "caption", 1))

	res, err := f.engine.CheckAndReserve(ctx, acc, "caption")
	require.NoError(t, err)
	require.False(t, res.Verdict.Allowed)

	_, err = f.engine.Commit(ctx, res)
	assert.ErrorIs(t, err, entitlement.ErrNotReserved)

	_, err = f.engine.Commit(ctx, nil)
	assert.ErrorIs(t, err, entitlement.ErrNotReserved)

	assert.Equal(t, map[string]int64{"caption": 1}, f.accounts.Usage("acc-1"))
}

func TestCommitOnce(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()

	res, err := f.engine.CheckAndReserve(ctx, identity.Authenticated("acc-1"), "script")
	require.NoError(t, err)

	_, err = f.engine.Commit(ctx, res)
	require.NoError(t, err)
	_, err = f.engine.Commit(ctx, res)
	assert.ErrorIs(t, err, entitlement.ErrAlreadyCommitted)

	assert.Equal(t, map[string]int64{"script": 1}, f.accounts.Usage("acc-1"))
}

func TestCommitSkippedWhenCanceled(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	res, err := f.engine.CheckAndReserve(ctx, identity.Authenticated("acc-1"), "caption")
	require.NoError(t, err)
	cancel()

	_, err = f.engine.Commit(ctx, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.accounts.Usage("acc-1"))
}

func TestZeroAllowanceRequiresSubscription(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()

	for _, id := range []identity.Identity{identity.Anonymous("v-1", nil), identity.Authenticated("acc-free")} {
		res, err := f.engine.CheckAndReserve(ctx, id, "brand-kit")
		require.NoError(t, err)
		assert.False(t, res.Verdict.Allowed)
		assert.Equal(t, entitlement.ReasonSubscriptionRequired, res.Verdict.Reason)
	}
}

func TestAnonymousRoundTrip(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()

	res, err := f.engine.CheckAndReserve(ctx, identity.Anonymous("v-1", nil), "caption")
	require.NoError(t, err)
	require.True(t, res.Verdict.Allowed)

	receipt, err := f.engine.Commit(ctx, res)
	require.NoError(t, err)
	assert.True(t, receipt.Counted)
	assert.Equal(t, int64(1), receipt.Count)
	require.NotEmpty(t, receipt.Token)

	replay := identity.Anonymous("v-1", map[string]string{"caption": receipt.Token})
	res, err = f.engine.CheckAndReserve(ctx, replay, "caption")
	require.NoError(t, err)
	assert.False(t, res.Verdict.Allowed)
	assert.Equal(t, entitlement.ReasonQuotaExceeded, res.Verdict.Reason)

	// The caption token does not consume the hashtags allowance.
	res, err = f.engine.CheckAndReserve(ctx, replay, "hashtags")
	require.NoError(t, err)
	assert.True(t, res.Verdict.Allowed)
}

func TestPermissiveStatus(t *testing.T) {
	t.Parallel()

	primary := subscription.SourceFunc(func(context.Context, string) (any, error) { return false, nil })
	fallback := subscription.SourceFunc(func(context.Context, string) (any, error) { return "true", nil })

	mem := accounts.NewMemory()
	codec, err := usagetoken.New([]string{secret})
	require.NoError(t, err)
	store, err := usage.New(mem, codec)
	require.NoError(t, err)

	engine, err := entitlement.New(registry(t), subscription.NewProvider(primary, subscription.WithFallback(fallback)), store)
	require.NoError(t, err)

	res, err := engine.CheckAndReserve(context.Background(), identity.Authenticated("acc-1"), "brand-kit")
	require.NoError(t, err)
	assert.True(t, res.Verdict.Allowed)
	assert.Equal(t, subscription.StatusPro, res.Status)
}

func TestConfigurationAndStoreFaults(t *testing.T) {
	t.Parallel()

	t.Run("unknown feature is an error, not a deny", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		res, err := f.engine.CheckAndReserve(context.Background(), identity.Anonymous("", nil), "nope")
		assert.ErrorIs(t, err, quota.ErrUnknownFeature)
		assert.Nil(t, res)
	})

	t.Run("fail closed status propagates", func(t *testing.T) {
		t.Parallel()

		down := subscription.SourceFunc(func(context.Context, string) (any, error) { return nil, errors.New("down") })
		store := &mockUsage{}
		engine, err := entitlement.New(registry(t), subscription.NewProvider(down, subscription.WithFailOpen(false)), store)
		require.NoError(t, err)

		_, err = engine.CheckAndReserve(context.Background(), identity.Authenticated("acc-1"), "caption")
		assert.ErrorIs(t, err, subscription.ErrStatusUnavailable)
		store.AssertNotCalled(t, "Count", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fail open status treats account as free", func(t *testing.T) {
		t.Parallel()

		down := subscription.SourceFunc(func(context.Context, string) (any, error) { return nil, errors.New("down") })
		store := &mockUsage{}
		store.On("Count", mock.Anything, mock.Anything, "caption").Return(int64(0), nil)

		engine, err := entitlement.New(registry(t), subscription.NewProvider(down), store)
		require.NoError(t, err)

		res, err := engine.CheckAndReserve(context.Background(), identity.Authenticated("acc-1"), "caption")
		require.NoError(t, err)
		assert.True(t, res.Verdict.Allowed)
		assert.Equal(t, subscription.StatusFree, res.Status)
	})

	t.Run("failed increment can be retried", func(t *testing.T) {
		t.Parallel()

		store := &mockUsage{}
		store.On("Count", mock.Anything, mock.Anything, "caption").Return(int64(0), nil)
		store.On("Increment", mock.Anything, mock.Anything, "caption").Return(usage.Increment{}, usage.ErrStoreUnavailable).Once()
		store.On("Increment", mock.Anything, mock.Anything, "caption").Return(usage.Increment{Count: 1}, nil)

		engine, err := entitlement.New(registry(t), subscription.NewProvider(accounts.NewMemory()), store)
		require.NoError(t, err)

		res, err := engine.CheckAndReserve(context.Background(), identity.Authenticated("acc-1"), "caption")
		require.NoError(t, err)

		_, err = engine.Commit(context.Background(), res)
		assert.ErrorIs(t, err, usage.ErrStoreUnavailable)

		receipt, err := engine.Commit(context.Background(), res)
		require.NoError(t, err)
		assert.Equal(t, int64(1), receipt.Count)
	})
}

func TestUsageInfo(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.accounts.SetSubscriptionFlag("acc-pro", true)
	require.NoError(t, f.accounts.WriteUsageCounter(ctx, "acc-1", "script", 1))

	info, err := f.engine.Usage(ctx, identity.Authenticated("acc-1"), "script")
	require.NoError(t, err)
	assert.Equal(t, entitlement.UsageInfo{Feature: "script", Tier: "free", Used: 1, Allowance: 2, Remaining: 1}, info)

	info, err = f.engine.Usage(ctx, identity.Authenticated("acc-pro"), "script")
	require.NoError(t, err)
	assert.True(t, info.Unlimited)
	assert.Equal(t, int64(-1), info.Remaining)

	_, err = f.engine.Usage(ctx, identity.Anonymous("", nil), "nope")
	assert.ErrorIs(t, err, quota.ErrUnknownFeature)
}

func TestClaim(t *testing.T) {
	t.Parallel()

	t.Run("disabled by default", func(t *testing.T) {
		t.Parallel()

		f := setup(t)
		_, err := f.engine.Claim(context.Background(), "acc-1", identity.Anonymous("", nil))
		assert.ErrorIs(t, err, entitlement.ErrClaimDisabled)
	})

	t.Run("merges anonymous usage into the account", func(t *testing.T) {
		t.Parallel()

		f := setup(t, entitlement.WithClaim(true))
		ctx := context.Background()

		res, err := f.engine.CheckAndReserve(ctx, identity.Anonymous("v-1", nil), "caption")
		require.NoError(t, err)
		receipt, err := f.engine.Commit(ctx, res)
		require.NoError(t, err)

		require.NoError(t, f.accounts.WriteUsageCounter(ctx, "acc-1", "script", 2))

		anon := identity.Anonymous("v-1", map[string]string{
			"caption": receipt.Token,
			"unknown": receipt.Token,
			"script":  "garbage",
		})
		merged, err := f.engine.Claim(ctx, "acc-1", anon)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"caption": 1}, merged)
		assert.Equal(t, map[string]int64{"caption": 1, "script": 2}, f.accounts.Usage("acc-1"))

		_, err = f.engine.Claim(ctx, "", anon)
		assert.ErrorIs(t, err, entitlement.ErrClaimNeedsAccount)
	})
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := entitlement.NewMetrics(reg)
	require.NoError(t, err)

	again, err := entitlement.NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, m.Decisions(), again.Decisions())

	f := setup(t, entitlement.WithMetrics(m))
	ctx := context.Background()
	anon := identity.Anonymous("v-1", nil)

	res, err := f.engine.CheckAndReserve(ctx, anon, "caption")
	require.NoError(t, err)
	_, err = f.engine.Commit(ctx, res)
	require.NoError(t, err)
	_, err = f.engine.CheckAndReserve(ctx, anon, "brand-kit")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Decisions().WithLabelValues("caption", "free", "allow", "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Decisions().WithLabelValues("brand-kit", "free", "deny", "subscription_required")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commits().WithLabelValues("caption", "ok")))

	m.UsageDegradedHook()(ctx, "read", errors.New("x"))
	m.StatusUnavailableHook()(ctx, "acc-1", errors.New("x"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DegradedCalls().WithLabelValues("usage", "read")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DegradedCalls().WithLabelValues("subscription", "read")))
}
