package token

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAccessToken is the domain-level credentials failure produced
// when an incoming token string does not verify. Callers treat it as
// "unauthenticated", never as a server fault.
var ErrInvalidAccessToken = errors.New("invalid access token")

// NameClaim carries the user's display name so clients can render it
// without an extra lookup.
const NameClaim = "name"

// Service issues access tokens for local users and parses incoming token
// strings back into typed tokens.
type Service struct {
	codec    *Codec
	validity time.Duration
}

// NewService creates a token service. The validity applies to every issued
// token; pass 0 to use the 7-day default.
func NewService(signingKey []byte, validity time.Duration) *Service {
	if validity <= 0 {
		validity = 7 * 24 * time.Hour
	}
	return &Service{
		codec:    NewCodec(signingKey),
		validity: validity,
	}
}

// Validity returns the configured token lifetime.
func (s *Service) Validity() time.Duration {
	return s.validity
}

// CreateAccessToken mints a token whose subject is the user's identifier.
func (s *Service) CreateAccessToken(userID, fullName string) (*AccessToken, error) {
	extra := map[string]any{}
	if fullName != "" {
		extra[NameClaim] = fullName
	}

	t, err := s.codec.Issue(userID, extra, s.validity)
	if err != nil {
		return nil, fmt.Errorf("creating access token: %w", err)
	}
	return t, nil
}

// ParseAccessToken verifies a token string, translating every codec
// failure into ErrInvalidAccessToken.
func (s *Service) ParseAccessToken(value string) (*AccessToken, error) {
	t, err := s.codec.Verify(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	return t, nil
}
