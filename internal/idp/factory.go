package idp

import (
	"context"
	"fmt"

	"github.com/taskgate/taskgate/internal/config"
)

// NewProvider creates a Provider for one config entry. redirectURI is the
// callback URL on this server for the named provider.
func NewProvider(ctx context.Context, name string, cfg config.ProviderConfig, redirectURI string) (Provider, error) {
	switch cfg.Kind {
	case config.ProviderGoogle:
		return NewGoogleProvider(name, cfg.ClientID, string(cfg.ClientSecret), redirectURI, cfg.HostedDomain), nil

	case config.ProviderGitHub:
		return NewGitHubProvider(name, cfg.ClientID, string(cfg.ClientSecret), redirectURI), nil

	case config.ProviderOIDC:
		return NewOIDCProvider(ctx, name, cfg.IssuerURL, cfg.ClientID, string(cfg.ClientSecret), redirectURI, cfg.Scopes)

	default:
		return nil, fmt.Errorf("unknown provider kind: %s", cfg.Kind)
	}
}

// BuildRegistry constructs the provider registry from configuration.
// Callback URLs follow the /login/oauth2/code/{provider} convention.
func BuildRegistry(ctx context.Context, providers map[string]config.ProviderConfig, baseURL string) (*Registry, error) {
	registry := NewRegistry()
	for name, cfg := range providers {
		redirectURI := fmt.Sprintf("%s/login/oauth2/code/%s", baseURL, name)
		p, err := NewProvider(ctx, name, cfg, redirectURI)
		if err != nil {
			return nil, fmt.Errorf("building provider %s: %w", name, err)
		}
		registry.Register(p)
	}
	return registry, nil
}
