// Package cookie is the transport layer for the two client-held artifacts:
// the access token cookie and the authorization request cookie. It performs
// no cryptographic work.
package cookie

import (
	"net/http"
	"time"

	"github.com/taskgate/taskgate/internal/envutil"
	"github.com/taskgate/taskgate/internal/log"
)

// AuthRequestPath scopes the authorization request cookie to the provider
// callback endpoints.
const AuthRequestPath = "/login/oauth2"

// Manager reads and writes the auth cookies with the configured names and
// domain scope.
type Manager struct {
	tokenName   string
	requestName string
	domain      string
}

// NewManager creates a cookie manager. domain may be empty for host-only
// cookies.
func NewManager(tokenName, requestName, domain string) *Manager {
	return &Manager{
		tokenName:   tokenName,
		requestName: requestName,
		domain:      domain,
	}
}

// SetToken writes the access token cookie. The cookie lives as long as the
// token itself; verification is self-contained so no shorter expiry is
// needed.
func (m *Manager) SetToken(w http.ResponseWriter, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     m.tokenName,
		Value:    value,
		Path:     "/",
		Domain:   m.domain,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogDebugWithFields("cookie", "Access token cookie set", map[string]any{
		"maxAge": maxAge.String(),
		"secure": secure,
	})
}

// GetToken retrieves the access token cookie value
func (m *Manager) GetToken(r *http.Request) (string, error) {
	c, err := r.Cookie(m.tokenName)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// ClearToken overwrites the access token cookie with an immediately
// expired value (logout).
func (m *Manager) ClearToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.tokenName,
		Value:    "",
		Path:     "/",
		Domain:   m.domain,
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		MaxAge:   -1,
	})
	log.LogDebugWithFields("cookie", "Access token cookie cleared", nil)
}

// SetAuthRequest writes the serialized authorization request, path-scoped
// to the callback endpoints so it is not replayed on ordinary API calls.
func (m *Manager) SetAuthRequest(w http.ResponseWriter, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.requestName,
		Value:    value,
		Path:     AuthRequestPath,
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// GetAuthRequest retrieves the serialized authorization request
func (m *Manager) GetAuthRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(m.requestName)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// ClearAuthRequest removes the authorization request cookie. Callers that
// consumed the record must call this to enforce single use.
func (m *Manager) ClearAuthRequest(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.requestName,
		Value:    "",
		Path:     AuthRequestPath,
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		MaxAge:   -1,
	})
}
