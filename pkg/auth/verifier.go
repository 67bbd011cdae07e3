package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier turns a raw session token into Claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Verifier validates Clerk session JWTs against a JWKS endpoint.
type Verifier struct {
	keyfunc keyfunc.Keyfunc
	parser  *jwt.Parser
	parties []string
}

// NewVerifier builds a verifier from cfg. ctx bounds the background JWKS
// refresh goroutine.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	issuer := strings.TrimRight(strings.TrimSpace(cfg.Issuer), "/")
	if issuer == "" {
		return nil, ErrMissingIssuer
	}
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, errors.Join(ErrJWKSInit, err)
	}
	return newVerifier(kf, issuer, cfg), nil
}

func newVerifier(kf keyfunc.Keyfunc, issuer string, cfg Config) *Verifier {
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = 5 * time.Second
	}
	return &Verifier{
		keyfunc: kf,
		parser: jwt.NewParser(
			jwt.WithIssuer(issuer),
			jwt.WithLeeway(leeway),
			jwt.WithExpirationRequired(),
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		),
		parties: cfg.AuthorizedParties,
	}
}

func (v *Verifier) Verify(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := v.parser.Parse(tokenString, v.keyfunc.Keyfunc)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	c := &Claims{
		Subject:         readString(mc, "sub"),
		SessionID:       readString(mc, "sid"),
		AuthorizedParty: readString(mc, "azp"),
		Plan:            readString(mc, "pla"),
		Raw:             mc,
	}
	if c.Subject == "" {
		return nil, ErrMissingSubject
	}
	// Clerk omits azp for some token types; only reject a mismatch.
	if len(v.parties) > 0 && c.AuthorizedParty != "" && !slices.Contains(v.parties, c.AuthorizedParty) {
		return nil, ErrUnauthorizedParty
	}
	return c, nil
}

// StaticVerifier accepts any non-empty token as the given claims. Used for
// the development bypass.
type StaticVerifier struct {
	Claims Claims
}

func (s StaticVerifier) Verify(context.Context, string) (*Claims, error) {
	c := s.Claims
	return &c, nil
}
