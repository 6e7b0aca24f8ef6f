package auth

import (
	"errors"
	"time"
)

// ErrInvalidCredentials is returned for unknown users or wrong passwords.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// LoginResult is returned after successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service authenticates the hub administrator.
type Service struct {
	user   string
	hash   string
	hasher Hasher
	tokens *TokenService
}

// NewService builds service for a single admin user with a bcrypt password hash.
func NewService(user, passwordHash string, hasher Hasher, tokens *TokenService) *Service {
	return &Service{user: user, hash: passwordHash, hasher: hasher, tokens: tokens}
}

// Login checks credentials and issues a token.
func (s *Service) Login(user, password string) (LoginResult, error) {
	if s.hash == "" || user != s.user {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(s.hash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: s.tokens.now().Add(s.tokens.expiresIn).UTC()}, nil
}

// Validate returns the user of a valid token.
func (s *Service) Validate(token string) (string, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.User, nil
}
