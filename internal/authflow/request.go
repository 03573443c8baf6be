// Package authflow persists in-flight OAuth2 authorization requests across
// the provider redirect round trip. The server keeps no state: the record
// travels in a signed, versioned cookie and is consumed exactly once on
// callback.
package authflow

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskgate/taskgate/internal/crypto"
)

// ClientRedirectParam is the well-known key under which the client-chosen
// final redirect URI is stored in a request's parameter map.
const ClientRedirectParam = "client-redirect-uri"

// recordVersion is bumped when the serialized shape changes. Decoding
// accepts the current version only; in-flight logins across a deploy that
// changes the shape fail as "missing" and restart cleanly.
const recordVersion = 1

// Request is one in-flight authorization attempt.
type Request struct {
	Version int `json:"v"`

	// Provider is the identity provider key this attempt was started with.
	Provider string `json:"provider"`

	// State is the CSRF correlator echoed back by the provider.
	State string `json:"state"`

	// RedirectURI is the callback on this server the provider returns to.
	RedirectURI string `json:"redirect_uri"`

	// AuthorizationEndpoint records where the user agent was sent.
	AuthorizationEndpoint string `json:"authorization_endpoint,omitempty"`

	// Params holds additional parameters, including ClientRedirectParam.
	Params map[string]string `json:"params,omitempty"`
}

// ClientRedirectURI returns the client-chosen final redirect target, or ""
// when the record carries none.
func (r *Request) ClientRedirectURI() string {
	return r.Params[ClientRedirectParam]
}

// Codec serializes requests into a tamper-evident wire form:
// base64url(JSON payload) "." base64url(HMAC-SHA256 signature).
type Codec struct {
	signingKey []byte
}

// NewCodec creates a request codec with the process signing key.
func NewCodec(signingKey []byte) Codec {
	return Codec{signingKey: signingKey}
}

// Encode serializes and signs a request.
func (c Codec) Encode(req *Request) (string, error) {
	req.Version = recordVersion

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling authorization request: %w", err)
	}

	signature := crypto.SignData(payload, c.signingKey)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + signature, nil
}

// Decode verifies and deserializes a request produced by Encode.
func (c Codec) Decode(value string) (*Request, error) {
	payloadPart, signature, ok := strings.Cut(value, ".")
	if !ok {
		return nil, fmt.Errorf("malformed authorization request record")
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, fmt.Errorf("decoding authorization request: %w", err)
	}

	if !crypto.ValidateSignedData(payload, signature, c.signingKey) {
		return nil, fmt.Errorf("authorization request signature mismatch")
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("unmarshaling authorization request: %w", err)
	}
	if req.Version != recordVersion {
		return nil, fmt.Errorf("unsupported authorization request version %d", req.Version)
	}

	return &req, nil
}
