// Package auth resolves the calling user from a Clerk session token.
//
// Verifier checks RS256 session JWTs against the instance JWKS
// (<issuer>/.well-known/jwks.json), the issuer and, when configured, the
// authorized party. Middleware stores verified Claims in the request context;
// RequireUser rejects requests without them with 401 {"error":"Unauthorized"}.
//
// Tokens are taken from "Authorization: Bearer" first, then from the
// __session cookie Clerk sets for same-site frontends.
package auth
