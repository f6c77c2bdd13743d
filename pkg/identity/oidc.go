package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCProvider verifies OpenID Connect ID tokens. The account id is the
// subject of the token.
type OIDCProvider struct {
	verifier *oidc.IDTokenVerifier
	opts     providerOptions
}

// NewOIDCProvider discovers the issuer configuration and verifies tokens
// issued for clientID.
func NewOIDCProvider(ctx context.Context, issuerURL, clientID string, opts ...Option) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuerURL, err)
	}
	return NewOIDCProviderWithVerifier(provider.Verifier(&oidc.Config{ClientID: clientID}), opts...), nil
}

// NewOIDCProviderWithVerifier uses a preconfigured verifier.
func NewOIDCProviderWithVerifier(verifier *oidc.IDTokenVerifier, opts ...Option) *OIDCProvider {
	return &OIDCProvider{verifier: verifier, opts: applyOptions(opts)}
}

func (p *OIDCProvider) Authenticate(r *http.Request) (string, error) {
	raw, err := extract(r, p.opts.extractors)
	if err != nil {
		return "", err
	}

	tok, err := p.verifier.Verify(r.Context(), raw)
	if err != nil {
		return "", errors.Join(ErrInvalidCredentials, err)
	}
	if tok.Subject == "" {
		return "", errors.Join(ErrInvalidCredentials, ErrMissingSubject)
	}
	return tok.Subject, nil
}
