// Package idp normalizes heterogeneous identity-provider claim shapes into
// one Identity. Providers are strategy entries keyed by name; adding a
// provider means adding an entry, not touching the login orchestration.
package idp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Identity is the normalized view of a provider's user-info response,
// constructed per login attempt and consumed immediately.
type Identity struct {
	Provider      string `json:"provider"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// DisplayIdentity is the human-readable handle used in operator-facing
// errors when the email claim is absent.
func (i *Identity) DisplayIdentity() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Subject
}

// Provider abstracts one identity provider.
type Provider interface {
	// Name returns the provider key (e.g. "google", "github", "oidc").
	Name() string

	// AuthCodeURL builds the provider authorization URL for the state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for provider tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Identity fetches and normalizes the provider's user info.
	Identity(ctx context.Context, token *oauth2.Token) (*Identity, error)
}

// Registry holds the configured providers keyed by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its name.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get looks up a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown identity provider: %s", name)
	}
	return p, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
