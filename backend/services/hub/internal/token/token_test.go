package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenValid(t *testing.T) {
	now := time.Now()
	assert.False(t, Token{}.Valid(now))
	assert.False(t, Token{AccessToken: "a", Expiry: now.Add(-time.Second)}.Valid(now))
	assert.True(t, Token{AccessToken: "a", Expiry: now.Add(time.Minute)}.Valid(now))
	assert.Equal(t, "Bearer a", Token{AccessToken: "a"}.BearerHeader())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Get(ctx, "mybmw:user")
	assert.True(t, errors.Is(err, ErrNoToken))

	require.NoError(t, s.Save(ctx, "mybmw:user", Token{AccessToken: "abc"}))
	tok, err := s.Get(ctx, "mybmw:user")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)

	require.NoError(t, s.Delete(ctx, "mybmw:user"))
	_, err = s.Get(ctx, "mybmw:user")
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	got, err := ExpiryFromJWT(signed)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	now := time.Now()
	assert.True(t, exp.Equal(ExpiryFor(now, signed, 0)))
	assert.Equal(t, now.Add(3600*time.Second), ExpiryFor(now, signed, 3600))
	assert.Equal(t, now, ExpiryFor(now, "opaque", 0))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ExpiryFromJWT(noExp)
	assert.Error(t, err)
}
