package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified subset of a Clerk session token.
type Claims struct {
	Subject         string
	SessionID       string
	AuthorizedParty string
	// Plan is Clerk Billing's "pla" claim, e.g. "u:pro" or "o:premium".
	Plan string
	Raw  jwt.MapClaims
}

type claimsKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// UserID returns the caller's user id or "" when unauthenticated.
func UserID(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Subject
	}
	return ""
}

func readString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
