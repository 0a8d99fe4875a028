package session

import (
	"context"

	"marquee/cmd/identity"
)

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// WithUser returns a copy of ctx carrying the resolved identity and the token it came from.
func WithUser(ctx context.Context, u identity.User, tok string) context.Context {
	ctx = context.WithValue(ctx, userKey, u)
	return context.WithValue(ctx, tokenKey, tok)
}

// UserFromContext returns the identity attached by the Gate.
func UserFromContext(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(userKey).(identity.User)
	return u, ok
}

// TokenFromContext returns the raw token attached by the Gate.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenKey).(string)
	return tok, ok && tok != ""
}
