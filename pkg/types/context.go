package types

import "context"

type contextKey string

const claimsContextKey contextKey = "user_claims"

// ContextWithClaims returns a context carrying the authenticated user's claims.
func ContextWithClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts the authenticated user's claims, if present.
func ClaimsFromContext(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*UserClaims)
	return claims, ok
}
