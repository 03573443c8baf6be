package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Secret is a string type that redacts itself when printed.
// In config files a secret is either a literal string or an environment
// reference of the form {"$env": "VAR_NAME"}; references are resolved at
// load time.
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// UnmarshalJSON resolves environment references immediately
func (s *Secret) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		*s = Secret(literal)
		return nil
	}

	var ref struct {
		Env string `json:"$env"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return fmt.Errorf("secret must be a string or {\"$env\": \"VAR_NAME\"}: %w", err)
	}
	if ref.Env == "" {
		return fmt.Errorf("secret must be a string or {\"$env\": \"VAR_NAME\"}")
	}

	value, ok := os.LookupEnv(ref.Env)
	if !ok {
		return fmt.Errorf("environment variable %s is not set", ref.Env)
	}
	*s = Secret(value)
	return nil
}

// Duration wraps time.Duration with JSON string parsing ("168h", "30m", ...)
type Duration time.Duration

// UnmarshalJSON parses a duration string
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"168h\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON renders the duration in time.Duration string form
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// StorageKind selects the user store backend
type StorageKind string

const (
	StorageMemory    StorageKind = "memory"
	StorageFirestore StorageKind = "firestore"
)

// ProviderKind identifies an identity provider implementation
type ProviderKind string

const (
	ProviderGoogle ProviderKind = "google"
	ProviderGitHub ProviderKind = "github"
	ProviderOIDC   ProviderKind = "oidc"
)

// ServerConfig configures the HTTP listener and web-layer plumbing
type ServerConfig struct {
	Addr           string   `json:"addr"`
	BaseURL        string   `json:"baseUrl"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// AuthConfig configures token issuance and the login flow
type AuthConfig struct {
	SigningKey Secret `json:"signingKey"`

	// TokenTTL is the access token validity. Defaults to 168h (7 days).
	TokenTTL Duration `json:"tokenTtl,omitempty"`

	TokenCookieName   string `json:"tokenCookieName,omitempty"`
	RequestCookieName string `json:"requestCookieName,omitempty"`
	CookieDomain      string `json:"cookieDomain,omitempty"`

	// AllowedRedirectURI is the template client redirect targets are
	// validated against, e.g. "https://app.example.com/*".
	AllowedRedirectURI string `json:"allowedRedirectUri"`

	Storage             StorageKind `json:"storage,omitempty"`
	FirestoreProjectID  string      `json:"firestoreProjectId,omitempty"`
	FirestoreDatabase   string      `json:"firestoreDatabase,omitempty"`
	FirestoreCollection string      `json:"firestoreCollection,omitempty"`
}

// ProviderConfig configures one identity provider
type ProviderConfig struct {
	Kind         ProviderKind `json:"kind"`
	ClientID     string       `json:"clientId"`
	ClientSecret Secret       `json:"clientSecret"`
	Scopes       []string     `json:"scopes,omitempty"`

	// DisplayName is shown in operator-facing errors, e.g. "Google".
	DisplayName string `json:"displayName,omitempty"`

	// HostedDomain restricts Google sign-in to one Workspace domain.
	HostedDomain string `json:"hostedDomain,omitempty"`

	// IssuerURL enables OIDC discovery for kind "oidc".
	IssuerURL string `json:"issuerUrl,omitempty"`
}

// Config is the top-level configuration
type Config struct {
	Version   string                    `json:"version"`
	Server    ServerConfig              `json:"server"`
	Auth      AuthConfig                `json:"auth"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// DefaultTokenTTL is applied when tokenTtl is not configured (7 days).
const DefaultTokenTTL = 7 * 24 * time.Hour

const (
	// DefaultTokenCookieName carries the access token
	DefaultTokenCookieName = "taskgate_token"
	// DefaultRequestCookieName carries the in-flight authorization request
	DefaultRequestCookieName = "taskgate_auth_request"
)
