// Package credential seals the blob service API key into a short-lived token
// so it never travels to clients in plaintext. Clients holding the shared
// secret open it right before uploading.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/hkdf"
)

var (
	// ErrNoSecret is returned when the shared secret is not configured.
	ErrNoSecret = errors.New("credential secret is empty")
	// ErrMalformed is returned for tokens that do not decrypt.
	ErrMalformed = errors.New("malformed credential")
	// ErrExpired is returned for tokens past their expiry.
	ErrExpired = errors.New("credential expired")
)

const hkdfInfo = "fe2audio upload credential v1"

type payload struct {
	Key string `json:"k"`
	Exp int64  `json:"exp"`
}

// Sealer seals and opens credentials with a key derived from a shared secret.
type Sealer struct {
	aead cipher.AEAD
	ttl  time.Duration
	now  func() time.Time
}

// NewSealer derives the AES-256 key from secret.
func NewSealer(secret string, ttl time.Duration) (*Sealer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead, ttl: ttl, now: time.Now}, nil
}

// Seal wraps apiKey into base64(nonce || ciphertext).
func (s *Sealer) Seal(apiKey string) (string, error) {
	plaintext, err := json.Marshal(payload{Key: apiKey, Exp: s.now().Add(s.ttl).Unix()})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open returns the API key inside token.
func (s *Sealer) Open(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrMalformed
	}

	n := s.aead.NonceSize()
	plaintext, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrMalformed
	}

	var p payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return "", ErrMalformed
	}
	if s.now().Unix() > p.Exp {
		return "", ErrExpired
	}
	return p.Key, nil
}
