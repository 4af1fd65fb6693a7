package slogx

import (
	"context"
	"log/slog"

	"github.com/shopforge/tokengate/pkg/idx"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithCorrelationID attaches a correlation id to the contextual logger,
// generating one when the caller has none. Every validation attempt gets
// its own id so the revocation write it may trigger can be tied back to
// the rejection that caused it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = idx.New().String()
	}
	l := FromContext(ctx)
	return WithContext(ctx, l.With("correlation_id", id))
}

// WithTokenID scopes the contextual logger to a token. Applied once the
// claims are readable, so downstream log lines carry the jti.
func WithTokenID(ctx context.Context, tokenID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("token_id", tokenID))
}
