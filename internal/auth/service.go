// Package auth handles OAuth sign-in and bearer session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Session is what a successful sign-in hands back to the client.
type Session struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

// Service contains the sign-in business logic.
type Service struct {
	provider IdentityProvider
	secret   []byte
	ttl      time.Duration
}

// NewService creates a new auth Service.
func NewService(provider IdentityProvider, jwtSecret string, ttl time.Duration) *Service {
	return &Service{provider: provider, secret: []byte(jwtSecret), ttl: ttl}
}

// LoginURL returns the provider redirect for the given state.
func (s *Service) LoginURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// Complete resolves the provider identity for code and issues a session token.
func (s *Service) Complete(ctx context.Context, code string) (*Session, error) {
	identity, err := s.provider.Identity(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	token, err := GenerateToken(identity, s.secret, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, Identity: identity}, nil
}

// newState generates a random OAuth state value.
func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
