package iam

import (
	"context"
	"net/http"
)

// Authenticator validates one credential class and produces a Principal.
//
// Return values:
//   - (principal, nil): authentication successful
//   - (nil, nil): credentials not present (not an error, try next authenticator)
//   - (nil, error): credentials present but invalid
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*Principal, error)
}

// AuthRequest wraps the request data authenticators inspect.
type AuthRequest struct {
	// Headers contains HTTP headers (including Authorization)
	Headers http.Header

	// Cookies contains parsed cookies
	Cookies []*http.Cookie
}

// NewAuthRequest extracts the authenticator view from an HTTP request.
func NewAuthRequest(r *http.Request) AuthRequest {
	return AuthRequest{
		Headers: r.Header,
		Cookies: r.Cookies(),
	}
}

// bearerToken pulls the token out of an Authorization: Bearer header,
// returning "" when absent.
func (r AuthRequest) bearerToken() string {
	const prefix = "Bearer "
	header := r.Headers.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// cookie returns the named cookie value, or "" when absent.
func (r AuthRequest) cookie(name string) string {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
