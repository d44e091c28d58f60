package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidKeySize       = errors.New("invalid AES key size (must be 16, 24, or 32 bytes)")
	ErrInvalidCiphertext    = errors.New("ciphertext too short to contain header and nonce")
	ErrUnknownVersion       = errors.New("sealed value has an unknown format version")
	ErrAuthenticationFailed = errors.New("ciphertext authentication failed")
)

// sealVersion prefixes every sealed value so the format can evolve.
const sealVersion byte = 1

// Sealer encrypts small values at rest with AES-GCM.
// Output layout: version(1) | nonce | ciphertext+tag.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a raw AES key.
func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		// aes.NewCipher checks key size (16, 24, 32 bytes)
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce. additional is bound to
// the ciphertext and must be passed again to Open.
func (s *Sealer) Seal(plaintext, additional []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	out := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+s.aead.Overhead())
	out[0] = sealVersion
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(out, out[1:], plaintext, additional), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, additional []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < 1+nonceSize {
		return nil, ErrInvalidCiphertext
	}
	if sealed[0] != sealVersion {
		return nil, ErrUnknownVersion
	}
	nonce := sealed[1 : 1+nonceSize]
	plaintext, err := s.aead.Open(nil, nonce, sealed[1+nonceSize:], additional)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return plaintext, nil
}
