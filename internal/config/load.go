package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Load reads and validates the config file, resolving environment
// references in secret fields as they are unmarshaled.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func applyDefaults(c *Config) {
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = Duration(DefaultTokenTTL)
	}
	if c.Auth.TokenCookieName == "" {
		c.Auth.TokenCookieName = DefaultTokenCookieName
	}
	if c.Auth.RequestCookieName == "" {
		c.Auth.RequestCookieName = DefaultRequestCookieName
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = StorageMemory
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate checks the loaded config for structural problems
func Validate(c *Config) error {
	if len(c.Auth.SigningKey) < 32 {
		return fmt.Errorf("auth.signingKey must be at least 32 bytes, got %d", len(c.Auth.SigningKey))
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.tokenTtl must be positive")
	}
	if c.Auth.AllowedRedirectURI == "" {
		return fmt.Errorf("auth.allowedRedirectUri is required")
	}
	if u, err := url.Parse(strings.TrimSuffix(c.Auth.AllowedRedirectURI, "*")); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("auth.allowedRedirectUri must be an absolute URI template")
	}

	switch c.Auth.Storage {
	case StorageMemory:
	case StorageFirestore:
		if c.Auth.FirestoreProjectID == "" {
			return fmt.Errorf("auth.firestoreProjectId is required for firestore storage")
		}
	default:
		return fmt.Errorf("unknown storage kind: %s", c.Auth.Storage)
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.baseUrl is required")
	}
	if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.baseUrl must be an absolute URL")
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}
	for name, p := range c.Providers {
		switch p.Kind {
		case ProviderGoogle, ProviderGitHub:
		case ProviderOIDC:
			if p.IssuerURL == "" {
				return fmt.Errorf("provider %s: issuerUrl is required for oidc providers", name)
			}
		default:
			return fmt.Errorf("provider %s: unknown kind %q", name, p.Kind)
		}
		if p.ClientID == "" {
			return fmt.Errorf("provider %s: clientId is required", name)
		}
		if p.ClientSecret == "" {
			return fmt.Errorf("provider %s: clientSecret is required", name)
		}
	}

	return nil
}
