package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// SessionCookie is the cookie Clerk stores the session token in.
const SessionCookie = "__session"

// TokenExtractor pulls a raw token out of a request.
type TokenExtractor func(r *http.Request) string

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CookieToken reads the named cookie.
func CookieToken(name string) TokenExtractor {
	return func(r *http.Request) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return c.Value
	}
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middleware)

type middleware struct {
	verifier   TokenVerifier
	extractors []TokenExtractor
	log        *slog.Logger
	always     bool
}

// WithExtractors replaces the default Bearer-then-cookie lookup.
func WithExtractors(ex ...TokenExtractor) MiddlewareOption {
	return func(m *middleware) { m.extractors = ex }
}

func WithLogger(log *slog.Logger) MiddlewareOption {
	return func(m *middleware) {
		if log != nil {
			m.log = log
		}
	}
}

// WithoutToken calls the verifier even when no token is present. Only
// meaningful with StaticVerifier.
func WithoutToken() MiddlewareOption {
	return func(m *middleware) { m.always = true }
}

// Middleware verifies the session token when present and stores the claims
// in the request context. It never rejects; pair it with RequireUser.
func Middleware(v TokenVerifier, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	m := &middleware{
		verifier:   v,
		extractors: []TokenExtractor{BearerToken, CookieToken(SessionCookie)},
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := m.token(r)
			if token == "" && !m.always {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := m.verifier.Verify(r.Context(), token)
			if err != nil {
				m.log.DebugContext(r.Context(), "session token rejected", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func (m *middleware) token(r *http.Request) string {
	for _, ex := range m.extractors {
		if t := ex(r); t != "" {
			return t
		}
	}
	return ""
}

// RequireUser answers 401 unless Middleware resolved a caller.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
