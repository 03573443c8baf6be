package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Verify for any token that is malformed,
// tampered with, undecodable, or expired. The token value and signing key
// are never included in the error.
var ErrInvalidToken = errors.New("invalid token")

// Codec encodes and verifies HS256-signed tokens with a symmetric key that
// is fixed for the process lifetime.
type Codec struct {
	signingKey []byte
	now        func() time.Time
}

// NewCodec creates a codec for the given signing key.
func NewCodec(signingKey []byte) *Codec {
	return &Codec{
		signingKey: signingKey,
		now:        time.Now,
	}
}

// Issue signs a claim set for the subject, setting iat to now and exp to
// now + validity. Extra claims must not collide with the registered names.
func (c *Codec) Issue(subject string, extra map[string]any, validity time.Duration) (*AccessToken, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(validity).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &AccessToken{
		value:     value,
		subject:   subject,
		issuedAt:  now.Truncate(time.Second),
		expiresAt: now.Add(validity).Truncate(time.Second),
		claims:    extra,
	}, nil
}

// Verify checks structure, signature and expiry and returns the decoded
// token. Any failure is reported as ErrInvalidToken.
func (c *Codec) Verify(value string) (*AccessToken, error) {
	segments := strings.Split(value, ".")
	if len(segments) != 3 || segments[0] == "" || segments[1] == "" || segments[2] == "" {
		return nil, fmt.Errorf("%w: expected three non-empty segments", ErrInvalidToken)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		return c.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
		default:
			return nil, fmt.Errorf("%w: undecodable claim set", ErrInvalidToken)
		}
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: verification failed", ErrInvalidToken)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	issuedAt, err := claims.GetIssuedAt()
	if err != nil || issuedAt == nil {
		return nil, fmt.Errorf("%w: missing iat", ErrInvalidToken)
	}
	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}

	extra := make(map[string]any)
	for k, v := range claims {
		switch k {
		case "sub", "iat", "exp":
		default:
			extra[k] = v
		}
	}

	return &AccessToken{
		value:     value,
		subject:   subject,
		issuedAt:  issuedAt.Time,
		expiresAt: expiresAt.Time,
		claims:    extra,
	}, nil
}
