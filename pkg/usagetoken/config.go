package usagetoken

import (
	"net/http"
	"strings"
)

// Config holds token and cookie settings.
type Config struct {
	Secrets  string        `env:"USAGE_TOKEN_SECRETS,required"`
	Prefix   string        `env:"USAGE_COOKIE_PREFIX" envDefault:"qk_usage_"`
	Path     string        `env:"USAGE_COOKIE_PATH" envDefault:"/"`
	Domain   string        `env:"USAGE_COOKIE_DOMAIN" envDefault:""`
	MaxAge   int           `env:"USAGE_COOKIE_MAX_AGE" envDefault:"31536000"`
	Secure   bool          `env:"USAGE_COOKIE_SECURE" envDefault:"true"`
	SameSite http.SameSite `env:"USAGE_COOKIE_SAME_SITE" envDefault:"2"` // 2 = SameSiteLaxMode
}

// SecretList splits the comma separated secrets.
func (c Config) SecretList() []string {
	parts := strings.Split(c.Secrets, ",")
	secrets := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

// NewFromConfig builds the codec and cookie helper described by cfg.
func NewFromConfig(cfg Config) (*Codec, *Cookies, error) {
	codec, err := New(cfg.SecretList())
	if err != nil {
		return nil, nil, err
	}

	opts := []Option{WithSecure(cfg.Secure)}
	if cfg.Path != "" {
		opts = append(opts, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		opts = append(opts, WithDomain(cfg.Domain))
	}
	if cfg.MaxAge != 0 {
		opts = append(opts, WithMaxAge(cfg.MaxAge))
	}
	if cfg.SameSite != 0 {
		opts = append(opts, WithSameSite(cfg.SameSite))
	}

	return codec, NewCookies(cfg.Prefix, opts...), nil
}
