package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/quotakit/pkg/accounts"
	"github.com/dmitrymomot/quotakit/pkg/accounts/mongostore"
	"github.com/dmitrymomot/quotakit/pkg/accounts/pgstore"
	"github.com/dmitrymomot/quotakit/pkg/accounts/redisstore"
	"github.com/dmitrymomot/quotakit/pkg/config"
	"github.com/dmitrymomot/quotakit/pkg/entitlement"
	"github.com/dmitrymomot/quotakit/pkg/httpserver"
	"github.com/dmitrymomot/quotakit/pkg/identity"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/meter"
	qmongo "github.com/dmitrymomot/quotakit/pkg/mongo"
	"github.com/dmitrymomot/quotakit/pkg/pg"
	"github.com/dmitrymomot/quotakit/pkg/quota"
	qredis "github.com/dmitrymomot/quotakit/pkg/redis"
	"github.com/dmitrymomot/quotakit/pkg/subscription"
	"github.com/dmitrymomot/quotakit/pkg/usage"
	"github.com/dmitrymomot/quotakit/pkg/usagetoken"
)

type app struct {
	log      *slog.Logger
	registry *quota.Registry
	engine   *entitlement.Engine
	resolver *identity.Resolver
	gate     *meter.Gate
	metrics  *prometheus.Registry
	op       Operation

	checks  map[string]httpserver.Check
	closers []func(context.Context) error
}

func build(ctx context.Context, cfg Config, log *slog.Logger) (*app, error) {
	a := &app{
		log:     log,
		metrics: prometheus.NewRegistry(),
		op:      echoOperation{},
		checks:  make(map[string]httpserver.Check),
	}
	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := entitlement.NewMetrics(a.metrics)
	if err != nil {
		return nil, err
	}

	src := quota.NewInMemSource(quota.DefaultPolicies()...)
	if cfg.PolicyFile != "" {
		src = quota.NewFileSource(cfg.PolicyFile)
	}
	if a.registry, err = quota.NewRegistry(ctx, src); err != nil {
		return nil, err
	}

	codec, cookies, err := usagetoken.NewFromConfig(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("usage token: %w", err)
	}

	store, err := a.accountStore(ctx, cfg)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	fallbacks, err := a.statusFallbacks(ctx, cfg, store)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	status := subscription.NewProvider(store,
		subscription.WithFallback(fallbacks...),
		subscription.WithTimeout(cfg.StoreTimeout),
		subscription.WithFailOpen(cfg.StatusFailOpen),
		subscription.WithLogger(log.With(logger.Component("subscription"))),
		subscription.WithUnavailableHook(m.StatusUnavailableHook()),
	)

	counters, err := usage.New(store, codec,
		usage.WithTimeout(cfg.StoreTimeout),
		usage.WithFailOpen(cfg.UsageFailOpen),
		usage.WithLogger(log.With(logger.Component("usage"))),
		usage.WithDegradedHook(m.UsageDegradedHook()),
	)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.engine, err = entitlement.New(a.registry, status, counters,
		entitlement.WithLogger(log.With(logger.Component("entitlement"))),
		entitlement.WithMetrics(m),
		entitlement.WithClaim(cfg.ClaimAnonymous),
	)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	providers, err := identityProviders(ctx, cfg)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.resolver = identity.NewResolver(cookies,
		identity.WithProviders(providers...),
		identity.WithLogger(log.With(logger.Component("identity"))),
	)
	a.gate = meter.NewGate(a.engine, a.resolver, cookies,
		meter.WithLogger(log.With(logger.Component("meter"))),
		meter.WithUpgradeURL(cfg.UpgradeURL),
		meter.WithFeatureChecker(a.registry),
	)

	log.InfoContext(ctx, "quotad configured",
		slog.String("backend", cfg.Backend),
		slog.String("status_fallback", cfg.StatusFallback),
		slog.Int("features", a.registry.Len()),
		slog.Bool("claim_anonymous", cfg.ClaimAnonymous),
	)
	return a, nil
}

func (a *app) accountStore(ctx context.Context, cfg Config) (accounts.Store, error) {
	switch cfg.Backend {
	case backendMemory, "":
		a.log.WarnContext(ctx, "in-memory account store, usage is lost on restart")
		return accounts.NewMemory(), nil

	case backendPostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		a.checks["postgres"] = pg.Healthcheck(pool)
		if err := pg.Migrate(ctx, pool, pgCfg, a.log, pgstore.Migrations); err != nil {
			return nil, err
		}
		return pgstore.New(pool), nil

	case backendRedis:
		client, prefix, err := a.connectRedis(ctx)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client, prefix), nil

	case backendMongo:
		var mCfg qmongo.Config
		if err := config.Load(&mCfg); err != nil {
			return nil, err
		}
		client, err := qmongo.Connect(ctx, mCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		a.checks["mongo"] = qmongo.Healthcheck(client)
		return mongostore.New(client.Database(mCfg.Database).Collection(mongostore.DefaultCollection)), nil
	}
	return nil, fmt.Errorf("unknown QUOTA_BACKEND %q", cfg.Backend)
}

// statusFallbacks returns the sources read next to the account store when
// resolving a subscription status.
func (a *app) statusFallbacks(ctx context.Context, cfg Config, primary accounts.Store) ([]subscription.FlagSource, error) {
	switch cfg.StatusFallback {
	case fallbackNone, "":
		return nil, nil
	case fallbackCache:
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		return []subscription.FlagSource{subscription.NewCachedSource(primary, max(cfg.CacheSize, 1), ttl)}, nil
	case fallbackRedis:
		if cfg.Backend == backendRedis {
			return nil, errors.New("QUOTA_STATUS_FALLBACK=redis needs a primary backend other than redis")
		}
		client, prefix, err := a.connectRedis(ctx)
		if err != nil {
			return nil, err
		}
		return []subscription.FlagSource{redisstore.New(client, prefix)}, nil
	}
	return nil, fmt.Errorf("unknown QUOTA_STATUS_FALLBACK %q", cfg.StatusFallback)
}

func (a *app) connectRedis(ctx context.Context) (*goredis.Client, string, error) {
	var rCfg qredis.Config
	if err := config.Load(&rCfg); err != nil {
		return nil, "", err
	}
	client, err := qredis.Connect(ctx, rCfg)
	if err != nil {
		return nil, "", err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.checks["redis"] = qredis.Healthcheck(client)
	return client, rCfg.KeyPrefix, nil
}

func identityProviders(ctx context.Context, cfg Config) ([]identity.Provider, error) {
	var providers []identity.Provider
	if cfg.JWTSecret != "" {
		var opts []identity.Option
		if cfg.JWTIssuer != "" {
			opts = append(opts, identity.WithIssuer(cfg.JWTIssuer))
		}
		p, err := identity.NewJWTProvider(cfg.JWTSecret, opts...)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if cfg.OIDCIssuer != "" {
		p, err := identity.NewOIDCProvider(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.WarnContext(ctx, "close dependency", logger.Error(err))
		}
	}
	a.closers = nil
}
