package identity

import (
	"log/slog"
	"maps"
)

type Kind uint8

const (
	KindAnonymous Kind = iota
	KindAuthenticated
)

func (k Kind) String() string {
	if k == KindAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Identity is the caller of a request. AccountID is set for Authenticated
// callers only; VisitorID and Tokens for Anonymous callers only.
type Identity struct {
	Kind      Kind
	AccountID string
	VisitorID string
	Tokens    map[string]string // feature id -> usage token echoed by the client
}

func Authenticated(accountID string) Identity {
	return Identity{Kind: KindAuthenticated, AccountID: accountID}
}

func Anonymous(visitorID string, tokens map[string]string) Identity {
	return Identity{Kind: KindAnonymous, VisitorID: visitorID, Tokens: maps.Clone(tokens)}
}

func (i Identity) IsAuthenticated() bool {
	return i.Kind == KindAuthenticated && i.AccountID != ""
}

// Token returns the usage token the client sent for feature, or "".
func (i Identity) Token(feature string) string {
	if i.IsAuthenticated() {
		return ""
	}
	return i.Tokens[feature]
}

// LogValue implements slog.LogValuer. Tokens are never logged.
func (i Identity) LogValue() slog.Value {
	if i.IsAuthenticated() {
		return slog.GroupValue(
			slog.String("kind", i.Kind.String()),
			slog.String("account_id", i.AccountID),
		)
	}
	return slog.GroupValue(
		slog.String("kind", KindAnonymous.String()),
		slog.String("visitor_id", i.VisitorID),
	)
}
