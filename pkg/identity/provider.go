package identity

import (
	"net/http"
	"time"
)

// Provider authenticates a request and returns the account id.
// It returns ErrNoCredentials when the request has no credentials for it.
type Provider interface {
	Authenticate(r *http.Request) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(r *http.Request) (string, error)

func (f ProviderFunc) Authenticate(r *http.Request) (string, error) {
	return f(r)
}

type providerOptions struct {
	extractors []TokenExtractorFunc
	issuer     string
	audience   string
	leeway     time.Duration
}

// Option configures JWTProvider and OIDCProvider.
type Option func(*providerOptions)

// WithExtractors replaces the default Bearer header extractor. Extractors are
// tried in order.
func WithExtractors(extractors ...TokenExtractorFunc) Option {
	return func(o *providerOptions) {
		if len(extractors) > 0 {
			o.extractors = extractors
		}
	}
}

// WithIssuer requires the iss claim to match. Ignored by OIDCProvider, which
// always checks the issuer it was created for.
func WithIssuer(issuer string) Option {
	return func(o *providerOptions) {
		o.issuer = issuer
	}
}

// WithAudience requires the aud claim to contain audience.
func WithAudience(audience string) Option {
	return func(o *providerOptions) {
		o.audience = audience
	}
}

func WithLeeway(d time.Duration) Option {
	return func(o *providerOptions) {
		o.leeway = d
	}
}

func applyOptions(opts []Option) providerOptions {
	o := providerOptions{extractors: []TokenExtractorFunc{BearerTokenExtractor}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
