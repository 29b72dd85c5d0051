// Package crypto seals session identifiers into opaque client tokens.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// ErrInvalidToken is returned when a token was not produced by this sealer's key.
var ErrInvalidToken = errors.New("invalid session token")

// TokenSealer encrypts and authenticates session ids with a shared secret key.
type TokenSealer struct {
	key [keySize]byte
}

// ParseKey decodes a Base64 SESSION_KEY. It must decode to exactly 32 bytes.
func ParseKey(keyBase64 string) ([]byte, error) {
	if keyBase64 == "" {
		return nil, errors.New("session key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode session key from base64: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("session key must be %d bytes after base64 decoding, got %d", keySize, len(key))
	}
	return key, nil
}

// NewTokenSealer creates a sealer for a 32-byte key.
func NewTokenSealer(key []byte) (*TokenSealer, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("session key must be %d bytes", keySize)
	}
	s := &TokenSealer{}
	copy(s.key[:], key)
	return s, nil
}

// GenerateKey returns a fresh random key, for local runs without SESSION_KEY.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return key, nil
}

// Seal returns a URL-safe token carrying id.
func (s *TokenSealer) Seal(id string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(id), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open recovers the id from a token produced by Seal.
func (s *TokenSealer) Open(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrInvalidToken
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	id, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrInvalidToken
	}
	return string(id), nil
}
