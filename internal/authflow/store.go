package authflow

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/taskgate/taskgate/internal/cookie"
	"github.com/taskgate/taskgate/internal/log"
)

// ErrRequestMissing is the normal, expected outcome when a callback
// arrives without a live authorization request (stale, forged, or
// already consumed).
var ErrRequestMissing = errors.New("authorization request missing")

// maxCookieSize is the conservative per-cookie limit of common browsers.
// A record that does not fit is a configuration error, not a runtime one.
const maxCookieSize = 4096

// Store persists authorization requests in the client-held cookie.
type Store struct {
	codec   Codec
	cookies *cookie.Manager
	ttl     time.Duration
}

// NewStore creates a cookie-backed request store. ttl bounds how long a
// provider callback may take before the attempt expires client-side.
func NewStore(signingKey []byte, cookies *cookie.Manager, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{
		codec:   NewCodec(signingKey),
		cookies: cookies,
		ttl:     ttl,
	}
}

// Save serializes the record into the transport cookie. At most one live
// record exists per browser: a second Save overwrites the first.
func (s *Store) Save(w http.ResponseWriter, req *Request) error {
	encoded, err := s.codec.Encode(req)
	if err != nil {
		return err
	}
	if len(encoded) > maxCookieSize {
		return fmt.Errorf("authorization request record is %d bytes, exceeding the %d byte cookie limit; reduce configured parameters", len(encoded), maxCookieSize)
	}

	s.cookies.SetAuthRequest(w, encoded, s.ttl)
	return nil
}

// Load reads the record without clearing it. Callers that fully consumed
// the record must call Clear to enforce single use.
func (s *Store) Load(r *http.Request) (*Request, error) {
	value, err := s.cookies.GetAuthRequest(r)
	if err != nil {
		return nil, ErrRequestMissing
	}

	req, err := s.codec.Decode(value)
	if err != nil {
		log.LogDebugWithFields("authflow", "Discarding undecodable authorization request", map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrRequestMissing, err)
	}

	return req, nil
}

// Clear removes the transport cookie, consuming the record.
func (s *Store) Clear(w http.ResponseWriter) {
	s.cookies.ClearAuthRequest(w)
}
