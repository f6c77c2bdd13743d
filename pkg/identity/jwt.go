package identity

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 32

// JWTProvider verifies HS256 session tokens. The account id is the sub claim.
type JWTProvider struct {
	secret []byte
	opts   providerOptions
	parser *jwt.Parser
}

func NewJWTProvider(secret string, opts ...Option) (*JWTProvider, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("%w: need at least %d chars", ErrSecretTooShort, minSecretLength)
	}

	o := applyOptions(opts)
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if o.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(o.issuer))
	}
	if o.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(o.audience))
	}
	if o.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(o.leeway))
	}

	return &JWTProvider{
		secret: []byte(secret),
		opts:   o,
		parser: jwt.NewParser(parserOpts...),
	}, nil
}

func (p *JWTProvider) Authenticate(r *http.Request) (string, error) {
	raw, err := extract(r, p.opts.extractors)
	if err != nil {
		return "", err
	}
	return p.Verify(raw)
}

// Verify checks a raw token and returns its subject.
func (p *JWTProvider) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, err := p.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}); err != nil {
		return "", errors.Join(ErrInvalidCredentials, err)
	}
	if claims.Subject == "" {
		return "", errors.Join(ErrInvalidCredentials, ErrMissingSubject)
	}
	return claims.Subject, nil
}

// Issue signs a session token for accountID, valid for ttl. Token issuance
// belongs to the identity provider; this exists for tests and local runs.
func (p *JWTProvider) Issue(accountID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Issuer:    p.opts.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if p.opts.audience != "" {
		claims.Audience = jwt.ClaimStrings{p.opts.audience}
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return tok, nil
}
