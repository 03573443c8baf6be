// Package login orchestrates the browser-driven OAuth2 login flow: the
// authorization kickoff and the provider callback with its success and
// failure outcomes. Every attempt reaches exactly one terminal redirect
// or error response; nothing below this boundary escapes undecided.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/taskgate/taskgate/internal/authflow"
	"github.com/taskgate/taskgate/internal/cookie"
	"github.com/taskgate/taskgate/internal/crypto"
	"github.com/taskgate/taskgate/internal/idp"
	jsonwriter "github.com/taskgate/taskgate/internal/json"
	"github.com/taskgate/taskgate/internal/log"
	"github.com/taskgate/taskgate/internal/redirect"
	"github.com/taskgate/taskgate/internal/token"
	"github.com/taskgate/taskgate/internal/user"
)

const (
	// AccessTokenParam carries the minted token on the success redirect.
	AccessTokenParam = "access-token"

	// ErrorParam is the error indicator appended on failure redirects.
	ErrorParam = "error"

	// consentDenied is the standard OAuth2 error for user-declined
	// consent; it redirects without an error indicator.
	consentDenied = "access_denied"

	exchangeTimeout = 30 * time.Second
)

// Handlers wires the login flow's collaborators together.
type Handlers struct {
	providers *idp.Registry
	requests  *authflow.Store
	guard     *redirect.Guard
	tokens    *token.Service
	users     *user.Provisioner
	cookies   *cookie.Manager
	baseURL   string
}

// NewHandlers creates the login handlers. baseURL is this server's
// externally visible origin, used to record the callback URI.
func NewHandlers(
	providers *idp.Registry,
	requests *authflow.Store,
	guard *redirect.Guard,
	tokens *token.Service,
	users *user.Provisioner,
	cookies *cookie.Manager,
	baseURL string,
) *Handlers {
	return &Handlers{
		providers: providers,
		requests:  requests,
		guard:     guard,
		tokens:    tokens,
		users:     users,
		cookies:   cookies,
		baseURL:   baseURL,
	}
}

// BeginAuthorization starts a login attempt: it validates the client's
// chosen redirect target, persists the authorization request in its
// transport cookie, and redirects to the provider.
//
// Route: GET /oauth2/authorization/{provider}?client-redirect-uri=<uri>
func (h *Handlers) BeginAuthorization(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("provider")
	provider, err := h.providers.Get(name)
	if err != nil {
		jsonwriter.WriteNotFound(w, "Unknown identity provider")
		return
	}

	clientRedirect := r.URL.Query().Get(authflow.ClientRedirectParam)
	if err := h.guard.Validate(clientRedirect); err != nil {
		log.LogWarnWithFields("login", "Rejected client redirect target", map[string]any{
			"provider": name,
			"error":    err.Error(),
		})
		jsonwriter.WriteBadRequest(w, "Redirect target is not allowed")
		return
	}

	state, err := crypto.GenerateSecureToken()
	if err != nil {
		log.LogError("Failed to generate state: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to start authorization")
		return
	}

	authURL := provider.AuthCodeURL(state)
	req := &authflow.Request{
		Provider:              name,
		State:                 state,
		RedirectURI:           fmt.Sprintf("%s/login/oauth2/code/%s", h.baseURL, name),
		AuthorizationEndpoint: authURL,
		Params: map[string]string{
			authflow.ClientRedirectParam: clientRedirect,
		},
	}
	if err := h.requests.Save(w, req); err != nil {
		log.LogError("Failed to persist authorization request: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to start authorization")
		return
	}

	log.LogDebugWithFields("login", "Authorization started", map[string]any{
		"provider": name,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles the provider's redirect back. It consumes the
// authorization request, validates the redirect target, and dispatches to
// the success or failure outcome.
//
// Route: GET /login/oauth2/code/{provider}?code=...&state=...
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("provider")

	req, err := h.requests.Load(r)
	if err != nil {
		// Normal for stale or forged callbacks; never redirect from here.
		log.LogWarnWithFields("login", "Callback without authorization request", map[string]any{
			"provider": name,
			"error":    err.Error(),
		})
		h.writeFlowError(w, http.StatusUnauthorized, NewFlowError(CodeRequestMissing, err))
		return
	}

	// The record is single-use: consume it before any outcome is written.
	h.requests.Clear(w)

	if req.Provider != name {
		h.writeFlowError(w, http.StatusUnauthorized, NewFlowError(CodeProviderMismatch,
			fmt.Errorf("request was started for provider %s", req.Provider)))
		return
	}

	clientRedirect := req.ClientRedirectURI()
	if clientRedirect == "" {
		h.writeFlowError(w, http.StatusUnauthorized, NewFlowError(CodeRedirectUndecided,
			errors.New("authorization request carries no client redirect target")))
		return
	}
	if err := h.guard.Validate(clientRedirect); err != nil {
		// Refuse to redirect; the rejected URI stays out of Location.
		log.LogErrorWithFields("login", "Redirect target failed policy on callback", map[string]any{
			"provider": name,
			"error":    err.Error(),
		})
		h.writeFlowError(w, http.StatusForbidden, NewFlowError(CodeRedirectRejected, err))
		return
	}

	query := r.URL.Query()
	if providerError := query.Get("error"); providerError != "" {
		h.handleFailure(w, r, name, clientRedirect, providerError, query.Get("error_description"))
		return
	}

	if query.Get("state") != req.State {
		h.writeFlowError(w, http.StatusUnauthorized, NewFlowError(CodeStateMismatch,
			errors.New("callback state does not match authorization request")))
		return
	}

	code := query.Get("code")
	if code == "" {
		h.redirectWithError(w, r, clientRedirect, CodeInvalidCallback)
		return
	}

	h.handleSuccess(w, r, name, clientRedirect, code)
}

// handleSuccess exchanges the code, provisions the local user, mints the
// access token, and redirects to the validated client target with the
// token attached.
func (h *Handlers) handleSuccess(w http.ResponseWriter, r *http.Request, name, clientRedirect, code string) {
	provider, err := h.providers.Get(name)
	if err != nil {
		h.writeFlowError(w, http.StatusNotFound, NewFlowError(CodeProviderMismatch, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	providerToken, err := provider.Exchange(ctx, code)
	if err != nil {
		log.LogErrorWithFields("login", "Code exchange failed", map[string]any{
			"provider": name,
			"error":    err.Error(),
		})
		h.redirectWithError(w, r, clientRedirect, CodeAuthenticationFail)
		return
	}

	identity, err := provider.Identity(ctx, providerToken)
	if err != nil {
		log.LogErrorWithFields("login", "Fetching identity failed", map[string]any{
			"provider": name,
			"error":    err.Error(),
		})
		h.redirectWithError(w, r, clientRedirect, CodeAuthenticationFail)
		return
	}

	localUser, err := h.users.Provision(ctx, identity)
	if err != nil {
		// Identity errors are logged with provider and identity for
		// operability; the client only sees the generic indicator.
		log.LogErrorWithFields("login", "User provisioning failed", map[string]any{
			"provider": name,
			"identity": identity.DisplayIdentity(),
			"error":    err.Error(),
		})
		h.redirectWithError(w, r, clientRedirect, CodeAuthenticationFail)
		return
	}

	accessToken, err := h.tokens.CreateAccessToken(localUser.ID.String(), localUser.FullName)
	if err != nil {
		log.LogError("Minting access token failed: %v", err)
		h.redirectWithError(w, r, clientRedirect, CodeAuthenticationFail)
		return
	}

	h.cookies.SetToken(w, accessToken.Value(), h.tokens.Validity())

	dest, err := appendQuery(clientRedirect, AccessTokenParam, accessToken.Value())
	if err != nil {
		log.LogError("Composing redirect failed: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to complete login")
		return
	}

	log.LogInfoWithFields("login", "Login succeeded", map[string]any{
		"provider": name,
		"user":     localUser.ID.String(),
	})
	http.Redirect(w, r, dest, http.StatusFound)
}

// handleFailure redirects the user back to the validated client target.
// User-declined consent redirects unchanged; every other provider error
// appends the error indicator.
func (h *Handlers) handleFailure(w http.ResponseWriter, r *http.Request, name, clientRedirect, providerError, description string) {
	log.LogWarnWithFields("login", "Provider reported an error", map[string]any{
		"provider":    name,
		"error":       providerError,
		"description": description,
	})

	if providerError == consentDenied {
		http.Redirect(w, r, clientRedirect, http.StatusFound)
		return
	}
	h.redirectWithError(w, r, clientRedirect, CodeAuthenticationFail)
}

// redirectWithError sends the user to the already-validated client target
// with the error indicator appended.
func (h *Handlers) redirectWithError(w http.ResponseWriter, r *http.Request, clientRedirect, code string) {
	dest, err := appendQuery(clientRedirect, ErrorParam, code)
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "Failed to complete login")
		return
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

func (h *Handlers) writeFlowError(w http.ResponseWriter, status int, flowErr *FlowError) {
	jsonwriter.WriteError(w, status, flowErr.Code, "Authentication failed")
}

func appendQuery(uri, key, value string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parsing redirect target: %w", err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
