// Package crypto seals credential blobs at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

var ErrMalformedEnvelope = errors.New("malformed envelope")

// Sealer encrypts values with AES-256-GCM under a key derived from a secret.
// Envelopes are laid out as nonce || tag || ciphertext.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	tagSize := s.aead.Overhead()

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	// GCM output is ciphertext || tag.
	sealed := s.aead.Seal(nil, nonce, plaintext, nil)
	ctLen := len(sealed) - tagSize

	envelope := make([]byte, 0, nonceSize+len(sealed))
	envelope = append(envelope, nonce...)
	envelope = append(envelope, sealed[ctLen:]...)
	envelope = append(envelope, sealed[:ctLen]...)
	return envelope, nil
}

func (s *Sealer) Open(envelope []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	tagSize := s.aead.Overhead()
	if len(envelope) < nonceSize+tagSize {
		return nil, ErrMalformedEnvelope
	}

	nonce := envelope[:nonceSize]
	tag := envelope[nonceSize : nonceSize+tagSize]
	ciphertext := envelope[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", err)
	}
	return plaintext, nil
}
