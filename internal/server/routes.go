package server

import (
	"net/http"

	"github.com/taskgate/taskgate/internal/authn"
	"github.com/taskgate/taskgate/internal/cookie"
	jsonwriter "github.com/taskgate/taskgate/internal/json"
	"github.com/taskgate/taskgate/internal/log"
	"github.com/taskgate/taskgate/internal/login"
)

// Deps collects the handlers the router needs.
type Deps struct {
	Login          *login.Handlers
	Authenticator  *authn.Authenticator
	Cookies        *cookie.Manager
	AllowedOrigins []string
}

// BuildHandler assembles the route table and middleware chain.
func BuildHandler(deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthHandler)

	mux.HandleFunc("GET /oauth2/authorization/{provider}", deps.Login.BeginAuthorization)
	mux.HandleFunc("GET /login/oauth2/code/{provider}", deps.Login.Callback)
	mux.HandleFunc("POST /login/oauth2/code/{provider}", deps.Login.Callback)

	mux.Handle("POST /logout", logoutHandler(deps.Cookies))
	mux.Handle("GET /me", deps.Authenticator.RequireAuth(http.HandlerFunc(meHandler)))

	return ChainMiddleware(mux,
		NewCORSMiddleware(deps.AllowedOrigins),
		NewLoggerMiddleware(),
	)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// logoutHandler clears the access token cookie. Issued tokens stay valid
// until natural expiry; bounded validity is the only revocation mechanism.
func logoutHandler(cookies *cookie.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cookies.ClearToken(w)
		log.LogDebugWithFields("server", "Logout completed", nil)
		w.WriteHeader(http.StatusNoContent)
	})
}

// meHandler returns the authenticated principal.
func meHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := authn.PrincipalFromContext(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Missing principal")
		return
	}

	_ = jsonwriter.Write(w, map[string]string{
		"id":   principal.UserID,
		"name": principal.Name,
	})
}
