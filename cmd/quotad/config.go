package main

import (
	"time"

	"github.com/dmitrymomot/quotakit/pkg/httpserver"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/usagetoken"
)

const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
	backendRedis    = "redis"
	backendMongo    = "mongo"

	fallbackNone  = "none"
	fallbackCache = "cache"
	fallbackRedis = "redis"
)

// Config of the quotad service. Backend specific settings (PG_*, REDIS_*,
// MONGODB_*) are loaded only for the selected backend.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"SERVICE_NAME" envDefault:"quotad"`

	Backend        string        `env:"QUOTA_BACKEND" envDefault:"memory"`
	StatusFallback string        `env:"QUOTA_STATUS_FALLBACK" envDefault:"cache"`
	CacheSize      int           `env:"QUOTA_STATUS_CACHE_SIZE" envDefault:"10000"`
	CacheTTL       time.Duration `env:"QUOTA_STATUS_CACHE_TTL" envDefault:"5m"`
	StatusFailOpen bool          `env:"QUOTA_STATUS_FAIL_OPEN" envDefault:"true"`
	UsageFailOpen  bool          `env:"QUOTA_USAGE_FAIL_OPEN" envDefault:"true"`
	StoreTimeout   time.Duration `env:"QUOTA_STORE_TIMEOUT" envDefault:"2s"`
	PolicyFile     string        `env:"QUOTA_POLICY_FILE"`
	ClaimAnonymous bool          `env:"QUOTA_CLAIM_ANONYMOUS" envDefault:"false"`
	UpgradeURL     string        `env:"QUOTA_UPGRADE_URL" envDefault:"/pricing"`
	ReadyTimeout   time.Duration `env:"READY_CHECK_TIMEOUT" envDefault:"2s"`

	JWTSecret    string `env:"AUTH_JWT_SECRET"`
	JWTIssuer    string `env:"AUTH_JWT_ISSUER"`
	OIDCIssuer   string `env:"AUTH_OIDC_ISSUER"`
	OIDCClientID string `env:"AUTH_OIDC_CLIENT_ID"`

	HTTP  httpserver.Config
	Log   logger.Config
	Token usagetoken.Config
}
