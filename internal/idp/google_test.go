package idp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGoogleIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer provider-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sub": "108427395",
			"email": "ada@example.com",
			"verified_email": true,
			"name": "Ada Lovelace",
			"picture": "https://lh3.example.com/photo.jpg"
		}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider("google", "client-id", "client-secret", "https://auth.example.com/login/oauth2/code/google", "")
	p.userInfoURL = srv.URL

	identity, err := p.Identity(context.Background(), &oauth2.Token{AccessToken: "provider-token"})
	require.NoError(t, err)

	assert.Equal(t, "google", identity.Provider)
	assert.Equal(t, "108427395", identity.Subject)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, "Ada Lovelace", identity.Name)
	assert.Equal(t, "https://lh3.example.com/photo.jpg", identity.Picture)
}

func TestGoogleIdentityUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewGoogleProvider("google", "client-id", "client-secret", "https://auth.example.com/login/oauth2/code/google", "")
	p.userInfoURL = srv.URL

	_, err := p.Identity(context.Background(), &oauth2.Token{AccessToken: "expired"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestGoogleAuthCodeURLCarriesState(t *testing.T) {
	p := NewGoogleProvider("google", "client-id", "client-secret", "https://auth.example.com/login/oauth2/code/google", "")

	u := p.AuthCodeURL("random-state")
	assert.Contains(t, u, "state=random-state")
	assert.Contains(t, u, "client_id=client-id")
	assert.NotContains(t, u, "hd=")
}

func TestGoogleAuthCodeURLCarriesHostedDomainHint(t *testing.T) {
	p := NewGoogleProvider("google", "client-id", "client-secret", "https://auth.example.com/login/oauth2/code/google", "example.com")

	assert.Contains(t, p.AuthCodeURL("random-state"), "hd=example.com")
}

func TestGoogleIdentityEnforcesHostedDomain(t *testing.T) {
	userInfo := func(email string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"sub": "108427395", "email": %q, "verified_email": true, "name": "Ada Lovelace"}`, email)
		}))
	}

	t.Run("matching_domain", func(t *testing.T) {
		srv := userInfo("ada@example.com")
		defer srv.Close()

		p := NewGoogleProvider("google", "client-id", "client-secret", "https://auth.example.com/login/oauth2/code/google", "example.com")
		p.userInfoURL = srv.URL

		identity, err := p.Identity(context.Background(), &oauth2.Token{AccessToken: "provider-token"})
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", identity.Email)
	})

	t.Run("foreign_domain", func(t *testing.T) {
		srv := userInfo("ada@gmail.com")
		defer srv.Close()

		// The `hd` hint is client-side only; the response is the authority.
		p := NewGoogleProvider("google", "client-id", "client-secret", "https://auth.example.com/login/oauth2/code/google", "example.com")
		p.userInfoURL = srv.URL

		_, err := p.Identity(context.Background(), &oauth2.Token{AccessToken: "provider-token"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "allowed domain")
	})
}
