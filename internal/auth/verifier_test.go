package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevTokens(t *testing.T) {
	v, err := NewVerifier("", "")
	require.NoError(t, err)

	p, err := v.Verify("operator:prop-1,prop-2")
	require.NoError(t, err)
	assert.True(t, p.CanAccess("prop-2"))
	assert.False(t, p.CanAccess("prop-3"))

	p, err = v.Verify("ADMIN")
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
	assert.True(t, p.CanAccess("anything"))

	_, err = v.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHMACTokens(t *testing.T) {
	secret := []byte("s3cret")
	v, err := NewVerifier(ModeHMAC, string(secret))
	require.NoError(t, err)

	tok, err := Sign(secret, Claims{
		Properties:       []string{"prop-1"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "svc-pms", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	require.NoError(t, err)
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "svc-pms", Role: RoleOperator, Properties: []string{"prop-1"}}, p)

	forged, err := Sign([]byte("other"), Claims{Role: RoleAdmin})
	require.NoError(t, err)
	_, err = v.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := Sign(secret, Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}})
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewVerifier(ModeHMAC, "")
	assert.Error(t, err)
	_, err = NewVerifier("jwks", "")
	assert.Error(t, err)
}
