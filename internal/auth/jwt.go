package auth

import (
	"crypto/rsa"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/config"
)

// SessionCookieName carries the console session token.
const SessionCookieName = "opentrusty.session"

// AccessClaims is the claim set carried by access tokens. ID tokens add
// OIDC claims on top via jwt.MapClaims.
type AccessClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// Signer signs and verifies the service's own JWTs. HS256 uses the shared
// secret; RS256 uses an RSA key pair whose public half is served over
// JWKS.
type Signer struct {
	issuer     string
	algorithm  string
	keyID      string
	secret     []byte
	privateKey *rsa.PrivateKey
}

// NewSigner builds a Signer from the JWT configuration.
func NewSigner(cfg config.JWTConfig, issuer string) (*Signer, error) {
	s := &Signer{
		issuer:    issuer,
		algorithm: cfg.Algorithm,
		keyID:     cfg.KeyID,
	}

	switch cfg.Algorithm {
	case "HS256":
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("JWT_SECRET_KEY is required for HS256")
		}
		s.secret = []byte(cfg.SecretKey)
	case "RS256":
		key, err := LoadOrGenerateRSAKey(cfg.SigningKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load signing key: %w", err)
		}
		s.privateKey = key
	default:
		return nil, fmt.Errorf("unsupported JWT algorithm: %s", cfg.Algorithm)
	}
	return s, nil
}

// Issuer returns the iss value stamped on signed tokens.
func (s *Signer) Issuer() string {
	return s.issuer
}

// Algorithm returns the configured signing algorithm name.
func (s *Signer) Algorithm() string {
	return s.algorithm
}

// Sign produces a signed compact JWT for any claim set.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	var token *jwt.Token
	switch s.algorithm {
	case "HS256":
		token = jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	case "RS256":
		token = jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	}
	if s.keyID != "" {
		token.Header["kid"] = s.keyID
	}

	var signed string
	var err error
	if s.algorithm == "HS256" {
		signed, err = token.SignedString(s.secret)
	} else {
		signed, err = token.SignedString(s.privateKey)
	}
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an access token. Every failure collapses
// to unauthenticated; callers never learn which check failed.
func (s *Signer) Verify(tokenString string) (*AccessClaims, error) {
	claims := new(AccessClaims)
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{s.algorithm}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, "invalid token", err)
	}
	return claims, nil
}

func (s *Signer) keyFunc(token *jwt.Token) (any, error) {
	switch s.algorithm {
	case "HS256":
		return s.secret, nil
	case "RS256":
		return &s.privateKey.PublicKey, nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", s.algorithm)
	}
}

// JWKS returns the public key set for the discovery endpoint. Symmetric
// configurations advertise an empty set.
func (s *Signer) JWKS() jose.JSONWebKeySet {
	if s.privateKey == nil {
		return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	}
	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       &s.privateKey.PublicKey,
				KeyID:     s.keyID,
				Algorithm: s.algorithm,
				Use:       "sig",
			},
		},
	}
}
