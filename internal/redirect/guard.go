// Package redirect validates client-supplied redirect destinations before
// any Location header is built from them. This is the check that keeps the
// login flow from being used as an open redirector.
package redirect

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
)

// ErrRejected is wrapped by every validation failure.
var ErrRejected = errors.New("redirect target rejected")

// Guard validates candidate URIs against a single allowed template of the
// form "https://app.example.com/some/path" or "https://app.example.com/*".
// The host part may carry a "*." prefix to allow subdomains.
type Guard struct {
	scheme     string
	host       string
	pathPrefix string
	wildcard   bool
}

// NewGuard parses the allowed redirect template.
func NewGuard(template string) (*Guard, error) {
	wildcard := strings.HasSuffix(template, "*")
	trimmed := strings.TrimSuffix(template, "*")

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect template: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("redirect template must be an absolute URI, got %q", template)
	}

	pathPrefix := normalizePath(u.Path)

	return &Guard{
		scheme:     strings.ToLower(u.Scheme),
		host:       strings.ToLower(u.Host),
		pathPrefix: pathPrefix,
		wildcard:   wildcard,
	}, nil
}

// Validate returns nil when candidate is covered by the template, and an
// error wrapping ErrRejected otherwise. The rejected URI appears in the
// error for logging but must never be echoed into a Location header.
func (g *Guard) Validate(candidate string) error {
	if candidate == "" {
		return fmt.Errorf("%w: empty redirect target", ErrRejected)
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return fmt.Errorf("%w: unparseable redirect target", ErrRejected)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: redirect target must be absolute", ErrRejected)
	}
	if u.User != nil {
		return fmt.Errorf("%w: redirect target must not carry userinfo", ErrRejected)
	}

	if strings.ToLower(u.Scheme) != g.scheme {
		return fmt.Errorf("%w: scheme mismatch for %q", ErrRejected, candidate)
	}
	if !g.hostAllowed(strings.ToLower(u.Host)) {
		return fmt.Errorf("%w: host mismatch for %q", ErrRejected, candidate)
	}

	// Dot segments are resolved before comparison; browsers normalize
	// them, so "/auth/../admin" would otherwise escape the prefix.
	candidatePath := normalizePath(u.Path)

	if g.wildcard {
		if !g.underPrefix(candidatePath) {
			return fmt.Errorf("%w: path outside allowed prefix for %q", ErrRejected, candidate)
		}
		return nil
	}
	if candidatePath != g.pathPrefix {
		return fmt.Errorf("%w: path mismatch for %q", ErrRejected, candidate)
	}
	return nil
}

func (g *Guard) underPrefix(candidatePath string) bool {
	if g.pathPrefix == "/" {
		return true
	}
	return candidatePath == g.pathPrefix || strings.HasPrefix(candidatePath, g.pathPrefix+"/")
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean(p)
}

func (g *Guard) hostAllowed(host string) bool {
	if host == g.host {
		return true
	}
	if strings.HasPrefix(g.host, "*.") {
		suffix := g.host[1:] // ".example.com"
		bare := stripPort(host)
		if strings.HasSuffix(bare, suffix) && bare != suffix[1:] {
			return true
		}
	}
	return false
}

func stripPort(host string) string {
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	return h
}
