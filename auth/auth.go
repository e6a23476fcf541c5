// Package auth issues and verifies the HS256 bearer tokens that scope callers
// to topologies.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthorized = errors.New("auth: invalid credentials")
	ErrForbidden    = errors.New("auth: access denied")
	ErrNoSecret     = errors.New("auth: jwt secret not configured")
)

// RoleAdmin may access every topology.
const RoleAdmin = "admin"

// Principal is the authenticated caller.
type Principal struct {
	Subject    string   `json:"subject"`
	Roles      []string `json:"roles,omitempty"`
	Topologies []string `json:"topologies,omitempty"`
}

// CanAccess reports whether the principal may read or change topologyID.
// Admins and a "*" grant see everything.
func (p Principal) CanAccess(topologyID string) bool {
	if slices.Contains(p.Roles, RoleAdmin) {
		return true
	}
	return slices.Contains(p.Topologies, "*") || slices.Contains(p.Topologies, topologyID)
}

type claims struct {
	jwt.RegisteredClaims
	Roles      []string `json:"roles,omitempty"`
	Topologies []string `json:"topologies,omitempty"`
}

// Verifier checks tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses token and returns its principal.
func (v *Verifier) Verify(token string) (Principal, error) {
	if len(v.secret) == 0 {
		return Principal{}, ErrNoSecret
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	c := &claims{}
	parsed, err := parser.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return Principal{}, ErrUnauthorized
	}
	if c.Subject == "" {
		return Principal{}, fmt.Errorf("%w: subject claim required", ErrUnauthorized)
	}
	return Principal{
		Subject:    c.Subject,
		Roles:      c.Roles,
		Topologies: c.Topologies,
	}, nil
}

// Issue signs a token for p that expires after ttl (no expiry when ttl <= 0).
func Issue(secret string, p Principal, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrNoSecret
	}
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.Subject,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   "topology",
		},
		Roles:      p.Roles,
		Topologies: p.Topologies,
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
