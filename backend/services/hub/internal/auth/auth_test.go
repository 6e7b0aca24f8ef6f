package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) *Service {
	t.Helper()
	hasher := NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	return NewService("admin", hash, hasher, NewTokenService("jwt-secret", time.Hour))
}

func TestLogin(t *testing.T) {
	s := newService(t)

	result, err := s.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	user, err := s.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	_, err = s.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login("root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithoutConfiguredHash(t *testing.T) {
	s := NewService("admin", "", NewBcryptHasher(0), NewTokenService("k", 0))
	_, err := s.Login("admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	s := newService(t)
	other := NewTokenService("other-secret", time.Hour)
	token, err := other.GenerateToken("admin")
	require.NoError(t, err)
	_, err = s.Validate(token)
	assert.Error(t, err)

	expired := NewTokenService("jwt-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err = expired.GenerateToken("admin")
	require.NoError(t, err)
	_, err = s.Validate(token)
	assert.Error(t, err)

	_, err = other.GenerateToken("")
	assert.Error(t, err)
}

func TestHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	_, err := h.Hash("")
	assert.Error(t, err)
	hash, err := h.Hash("pw")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "pw"))
	assert.Error(t, h.Compare(hash, "other"))
}
