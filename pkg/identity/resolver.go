package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/usagetoken"
)

// Resolver turns a request into an Identity.
type Resolver struct {
	providers []Provider
	cookies   *usagetoken.Cookies
	log       *slog.Logger
}

type ResolverOption func(*Resolver)

// WithProviders sets the account credential providers, tried in order.
func WithProviders(providers ...Provider) ResolverOption {
	return func(r *Resolver) {
		for _, p := range providers {
			if p != nil {
				r.providers = append(r.providers, p)
			}
		}
	}
}

func WithLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver reads anonymous usage tokens through cookies.
func NewResolver(cookies *usagetoken.Cookies, opts ...ResolverOption) *Resolver {
	if cookies == nil {
		cookies = usagetoken.NewCookies("")
	}
	r := &Resolver{cookies: cookies, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never fails. An authenticated account always wins over anonymous
// tokens present on the same request.
func (res *Resolver) Resolve(r *http.Request) Identity {
	for _, p := range res.providers {
		accountID, err := p.Authenticate(r)
		switch {
		case err == nil && accountID != "":
			return Authenticated(accountID)
		case err == nil, errors.Is(err, ErrNoCredentials):
			continue
		default:
			res.log.DebugContext(r.Context(), "rejected account credentials", logger.Error(err))
		}
	}

	return Anonymous(res.cookies.VisitorID(r), res.cookies.Tokens(r))
}

// Middleware resolves the identity once and stores it in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := res.Resolve(r)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}

// FromRequest returns the identity stored by Middleware, or resolves it.
func (res *Resolver) FromRequest(r *http.Request) Identity {
	if id, ok := Lookup(r.Context()); ok {
		return id
	}
	return res.Resolve(r)
}
