package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	token, err := Issue("s3cret", Principal{Subject: "ops", Topologies: []string{"prod"}}, time.Hour)
	require.NoError(t, err)

	p, err := NewVerifier("s3cret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", p.Subject)
	assert.True(t, p.CanAccess("prod"))
	assert.False(t, p.CanAccess("staging"))
}

func TestVerify_Rejects(t *testing.T) {
	good, err := Issue("s3cret", Principal{Subject: "ops"}, time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("other").Verify(good)
	assert.ErrorIs(t, err, ErrUnauthorized)

	c := claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = NewVerifier("s3cret").Verify(expired)
	assert.ErrorIs(t, err, ErrUnauthorized)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = NewVerifier("s3cret").Verify(noSubject)
	assert.ErrorIs(t, err, ErrUnauthorized)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewVerifier("s3cret").Verify(none)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = NewVerifier("").Verify(good)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestCanAccess(t *testing.T) {
	assert.True(t, Principal{Roles: []string{RoleAdmin}}.CanAccess("any"))
	assert.True(t, Principal{Topologies: []string{"*"}}.CanAccess("any"))
	assert.False(t, Principal{}.CanAccess("any"))
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)
	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	p, ok := FromContext(WithPrincipal(context.Background(), Principal{Subject: "me"}))
	require.True(t, ok)
	assert.Equal(t, "me", p.Subject)
}
