// Package requestctx carries authenticated request identity through
// the request context.
package requestctx

import "context"

type contextKey string

const userKey contextKey = "ethioshop.user"

// UserClaims is the authenticated identity attached to a request.
type UserClaims struct {
	ID   string
	Role string
	Name string
}

// WithUser returns a context carrying the given claims.
func WithUser(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, userKey, claims)
}

// UserFrom extracts the claims from the context, if present.
func UserFrom(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(userKey).(UserClaims)
	return claims, ok
}
