// Package authn converts a bare token string presented on an API call
// into an authenticated principal. Identity is passed explicitly through
// the request context, never through ambient state.
package authn

import (
	"context"
	"net/http"
	"strings"

	"github.com/taskgate/taskgate/internal/cookie"
	jsonwriter "github.com/taskgate/taskgate/internal/json"
	"github.com/taskgate/taskgate/internal/log"
	"github.com/taskgate/taskgate/internal/token"
)

// Principal is the authenticated caller of an API request.
type Principal struct {
	// UserID is the token subject: the local user identifier.
	UserID string

	// Name is the display name claim, when the token carries one.
	Name string
}

// unexported, collision-proof context key
type principalContextKey struct{}

// PrincipalFromContext extracts the authenticated principal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok
}

// WithPrincipal attaches a principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Authenticator verifies presented tokens. It is a pure verification
// step with no side effects.
type Authenticator struct {
	tokens  *token.Service
	cookies *cookie.Manager
}

// NewAuthenticator creates an authenticator over the token service.
func NewAuthenticator(tokens *token.Service, cookies *cookie.Manager) *Authenticator {
	return &Authenticator{tokens: tokens, cookies: cookies}
}

// Authenticate parses and verifies a raw token value into a principal.
// Failures carry token.ErrInvalidAccessToken and mean "unauthenticated",
// never a server fault.
func (a *Authenticator) Authenticate(rawToken string) (*Principal, error) {
	t, err := a.tokens.ParseAccessToken(rawToken)
	if err != nil {
		return nil, err
	}

	p := &Principal{UserID: t.Subject()}
	if name, ok := t.Claim(token.NameClaim); ok {
		if s, ok := name.(string); ok {
			p.Name = s
		}
	}
	return p, nil
}

// TokenFromRequest extracts the presented token: the Authorization header
// takes precedence over the token cookie.
func (a *Authenticator) TokenFromRequest(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		if raw, ok := strings.CutPrefix(header, "Bearer "); ok && raw != "" {
			return raw, true
		}
		return "", false
	}

	raw, err := a.cookies.GetToken(r)
	if err != nil || raw == "" {
		return "", false
	}
	return raw, true
}

// RequireAuth rejects unauthenticated requests and passes the principal
// to the wrapped handler via the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := a.TokenFromRequest(r)
		if !ok {
			jsonwriter.WriteUnauthorized(w, "Missing access token")
			return
		}

		principal, err := a.Authenticate(raw)
		if err != nil {
			// Safe to log at debug; the token value stays out of the logs.
			log.LogDebugWithFields("authn", "Token verification failed", map[string]any{
				"path": r.URL.Path,
			})
			jsonwriter.WriteUnauthorized(w, "Invalid access token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}
