// Package auth verifies session tokens issued by the external identity
// provider and carries the resulting identity through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenRequired is returned when no session token is presented.
	ErrTokenRequired = errors.New("session token is required")
	// ErrTokenInvalid is returned for malformed, expired or mismatched tokens.
	ErrTokenInvalid = errors.New("session token is invalid")
	// ErrNotConfigured is returned when the verifier has no signing key.
	ErrNotConfigured = errors.New("session verifier is not configured")
)

// Identity is the authenticated viewer as reported by the identity provider.
type Identity struct {
	Subject   string
	Email     string
	Username  string
	FirstName string
	LastName  string
	ImageURL  string
}

// Authenticated reports whether the identity carries a subject.
func (i Identity) Authenticated() bool {
	return i.Subject != ""
}

// Claims is the JWT payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Identity converts verified claims into an Identity.
func (c Claims) Identity() Identity {
	return Identity{
		Subject:   c.Subject,
		Email:     c.Email,
		Username:  c.Username,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		ImageURL:  c.ImageURL,
	}
}

// Verifier checks HS256 session tokens.
type Verifier struct {
	Secret   []byte
	Issuer   string
	Audience string
	Now      func() time.Time
}

// NewVerifier returns a verifier for the given HMAC secret. Issuer and
// audience are only checked when non-empty.
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{
		Secret:   []byte(secret),
		Issuer:   strings.TrimSpace(issuer),
		Audience: strings.TrimSpace(audience),
		Now:      time.Now,
	}
}

func (v *Verifier) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

// Verify parses token and returns the identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrTokenRequired
	}
	if len(v.Secret) == 0 {
		return Identity{}, ErrNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: sub is required", ErrTokenInvalid)
	}
	return claims.Identity(), nil
}

// Sign issues a token for identity valid for ttl. It backs the development
// token command and tests; production tokens come from the identity provider.
func (v *Verifier) Sign(identity Identity, ttl time.Duration) (string, error) {
	if len(v.Secret) == 0 {
		return "", ErrNotConfigured
	}

	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			Issuer:    v.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     identity.Email,
		Username:  identity.Username,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		ImageURL:  identity.ImageURL,
	}
	if v.Audience != "" {
		claims.Audience = jwt.ClaimStrings{v.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// FromContext returns the identity stored in ctx, or the zero Identity for
// anonymous requests.
func FromContext(ctx context.Context) Identity {
	identity, _ := ctx.Value(identityKey{}).(Identity)
	return identity
}
