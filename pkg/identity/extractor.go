package identity

import (
	"net/http"
	"strings"
)

// TokenExtractorFunc pulls a raw credential out of a request. It returns
// ErrNoCredentials when the request carries none.
type TokenExtractorFunc func(r *http.Request) (string, error)

func BearerTokenExtractor(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrNoCredentials
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrNoCredentials
	}
	return token, nil
}

func CookieTokenExtractor(name string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", ErrNoCredentials
		}
		return c.Value, nil
	}
}

func HeaderTokenExtractor(name string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		v := r.Header.Get(name)
		if v == "" {
			return "", ErrNoCredentials
		}
		return v, nil
	}
}

func extract(r *http.Request, extractors []TokenExtractorFunc) (string, error) {
	for _, ex := range extractors {
		if tok, err := ex(r); err == nil {
			return tok, nil
		}
	}
	return "", ErrNoCredentials
}
