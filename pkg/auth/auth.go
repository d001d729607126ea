// Package auth applies per-host credentials to requests against private
// channel servers.
package auth

import (
	"net"
	"net/http"
	"strings"

	"github.com/glorpus-work/chanmirror/pkg/errors"
)

// Authenticator defines the interface for applying authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// Type represents the type of authentication.
type Type string

// Authentication types.
const (
	// BasicAuthType represents HTTP Basic Authentication.
	BasicAuthType Type = "basic"
	// HeaderAuthType represents custom header-based authentication.
	HeaderAuthType Type = "header"
	// BearerAuthType represents Bearer token authentication.
	BearerAuthType Type = "bearer"
)

// BasicAuth represents HTTP Basic Authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Apply adds Basic Authentication headers to the HTTP request.
func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// Type returns the authentication type (BasicAuthType).
func (b BasicAuth) Type() Type { return BasicAuthType }

// HeaderAuth represents authentication via custom HTTP headers.
type HeaderAuth struct {
	Headers map[string]string
}

// Apply adds custom headers to the HTTP request.
func (h HeaderAuth) Apply(req *http.Request) error {
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	return nil
}

// Type returns the authentication type (HeaderAuthType).
func (h HeaderAuth) Type() Type { return HeaderAuthType }

// BearerAuth represents Bearer token authentication.
type BearerAuth struct {
	Token string
}

// Apply adds a Bearer token to the Authorization header of the HTTP request.
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

// Type returns the authentication type (BearerAuthType).
func (b BearerAuth) Type() Type { return BearerAuthType }

// Registry maps channel hosts to the credentials used for them. Hosts are
// matched case-insensitively and without the port. A nil Registry applies
// no credentials anywhere.
type Registry struct {
	hosts map[string]Authenticator
}

// NewRegistry creates an empty credential registry.
func NewRegistry() *Registry {
	return &Registry{hosts: make(map[string]Authenticator)}
}

// Register sets the authenticator for a host, replacing any previous one.
func (r *Registry) Register(host string, a Authenticator) {
	r.hosts[normalizeHost(host)] = a
}

// For returns the authenticator registered for host, or nil.
func (r *Registry) For(host string) Authenticator {
	if r == nil {
		return nil
	}
	return r.hosts[normalizeHost(host)]
}

// Apply applies the credentials registered for the request's host, if any.
func (r *Registry) Apply(req *http.Request) error {
	a := r.For(req.URL.Host)
	if a == nil {
		return nil
	}
	return a.Apply(req)
}

func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

// New builds an authenticator of the given type from its credential parts.
func New(typ Type, username, password, token string, headers map[string]string) (Authenticator, error) {
	switch typ {
	case BasicAuthType:
		if username == "" {
			return nil, errors.Wrapf(errors.ErrConfigValidation, "basic auth requires a username")
		}
		return BasicAuth{Username: username, Password: password}, nil
	case BearerAuthType:
		if token == "" {
			return nil, errors.Wrapf(errors.ErrConfigValidation, "bearer auth requires a token")
		}
		return BearerAuth{Token: token}, nil
	case HeaderAuthType:
		if len(headers) == 0 {
			return nil, errors.Wrapf(errors.ErrConfigValidation, "header auth requires at least one header")
		}
		return HeaderAuth{Headers: headers}, nil
	default:
		return nil, errors.Wrapf(errors.ErrConfigValidation, "unknown auth type %q", typ)
	}
}
