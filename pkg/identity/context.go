package identity

import (
	"context"
	"log/slog"
)

type identityCtxKey struct{}

func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// Lookup returns the identity stored in ctx, if any.
func Lookup(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// FromContext returns the stored identity or an anonymous one without tokens.
func FromContext(ctx context.Context) Identity {
	if id, ok := Lookup(ctx); ok {
		return id
	}
	return Anonymous("", nil)
}

// LoggerExtractor adds the caller to log records, see logger.WithContextExtractors.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := Lookup(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Any("caller", id), true
	}
}
