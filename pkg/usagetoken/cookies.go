package usagetoken

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPrefix        = "qk_usage_"
	DefaultVisitorCookie = "qk_visitor"
	defaultMaxAge        = 365 * 24 * 60 * 60
)

// Cookies reads and writes usage tokens, one cookie per feature.
type Cookies struct {
	prefix  string
	visitor string
	opts    Options
}

// NewCookies returns a Cookies using prefix for feature cookie names.
// An empty prefix falls back to DefaultPrefix.
func NewCookies(prefix string, opts ...Option) *Cookies {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	o := Options{
		Path:     "/",
		MaxAge:   defaultMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cookies{prefix: prefix, visitor: DefaultVisitorCookie, opts: o}
}

// Name returns the cookie name of feature.
func (c *Cookies) Name(feature string) string {
	return c.prefix + feature
}

// Tokens returns every usage token of the request keyed by feature id.
func (c *Cookies) Tokens(r *http.Request) map[string]string {
	tokens := make(map[string]string)
	for _, ck := range r.Cookies() {
		feature, ok := strings.CutPrefix(ck.Name, c.prefix)
		if !ok || feature == "" || ck.Value == "" {
			continue
		}
		tokens[feature] = ck.Value
	}
	return tokens
}

// Set writes the usage token of feature.
func (c *Cookies) Set(w http.ResponseWriter, feature, token string) {
	http.SetCookie(w, c.cookie(c.Name(feature), token))
}

// Delete expires the usage cookie of feature.
func (c *Cookies) Delete(w http.ResponseWriter, feature string) {
	ck := c.cookie(c.Name(feature), "")
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	http.SetCookie(w, ck)
}

// VisitorID returns the visitor id of the request, or "" when it is missing
// or malformed.
func (c *Cookies) VisitorID(r *http.Request) string {
	ck, err := r.Cookie(c.visitor)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(ck.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// EnsureVisitor writes a new visitor cookie when the request has none and
// returns the visitor id.
func (c *Cookies) EnsureVisitor(w http.ResponseWriter, r *http.Request) string {
	if id := c.VisitorID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, c.cookie(c.visitor, id))
	return id
}

func (c *Cookies) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.opts.Path,
		Domain:   c.opts.Domain,
		MaxAge:   c.opts.MaxAge,
		Secure:   c.opts.Secure,
		HttpOnly: c.opts.HttpOnly,
		SameSite: c.opts.SameSite,
	}
}
