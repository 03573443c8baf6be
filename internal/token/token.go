// Package token mints and verifies the self-contained access tokens that
// replace server-side sessions. A token is a standard three-segment JWS
// signed with a process-wide symmetric key; verification needs no storage
// round trip.
package token

import (
	"time"
)

// AccessToken is the immutable, decoded form of an issued token.
type AccessToken struct {
	value     string
	subject   string
	issuedAt  time.Time
	expiresAt time.Time
	claims    map[string]any
}

// Value returns the three-part encoded token string.
func (t *AccessToken) Value() string {
	return t.value
}

// Subject returns the local user identifier the token was issued for.
func (t *AccessToken) Subject() string {
	return t.subject
}

// IssuedAt returns the token's iat claim.
func (t *AccessToken) IssuedAt() time.Time {
	return t.issuedAt
}

// ExpiresAt returns the token's exp claim.
func (t *AccessToken) ExpiresAt() time.Time {
	return t.expiresAt
}

// Claim returns an extra claim by name.
func (t *AccessToken) Claim(name string) (any, bool) {
	v, ok := t.claims[name]
	return v, ok
}
