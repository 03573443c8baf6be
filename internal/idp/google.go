package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/taskgate/taskgate/internal/emailutil"
)

// GoogleProvider implements Provider for Google OAuth.
// Google reports email verification as `verified_email` rather than the
// OIDC standard `email_verified`.
type GoogleProvider struct {
	name         string
	config       oauth2.Config
	userInfoURL  string
	hostedDomain string
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// NewGoogleProvider creates a Google provider. redirectURI is the callback
// on this server for the provider name. hostedDomain may be empty; when set
// it restricts sign-in to one Google Workspace domain.
func NewGoogleProvider(name, clientID, clientSecret, redirectURI, hostedDomain string) *GoogleProvider {
	return &GoogleProvider{
		name: name,
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
		hostedDomain: hostedDomain,
	}
}

// Name returns the provider key.
func (p *GoogleProvider) Name() string {
	return p.name
}

// AuthCodeURL builds the Google authorization URL. A configured hosted
// domain is passed as the `hd` hint so the account picker pre-filters, but
// the hint is advisory and the domain is re-checked on the response.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	if p.hostedDomain != "" {
		return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("hd", p.hostedDomain))
	}
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

// Identity fetches the Google userinfo endpoint and normalizes the result.
func (p *GoogleProvider) Identity(ctx context.Context, t *oauth2.Token) (*Identity, error) {
	client := p.config.Client(ctx, t)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetching google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching google user info: status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding google user info: %w", err)
	}

	if p.hostedDomain != "" && emailutil.ExtractDomain(info.Email) != p.hostedDomain {
		return nil, fmt.Errorf("google account %s is outside the allowed domain %s", info.Email, p.hostedDomain)
	}

	return &Identity{
		Provider:      p.name,
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}
