// Package crypto provides authenticated symmetric encryption for blobs at
// rest, grounded on the same golang.org/x/crypto dependency the rest of the
// stack already carries (there for bcrypt; here for XChaCha20-Poly1305).
package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	labelerrors "github.com/ttbverify/labelverify/internal/pkg/errors"
)

// KeySize is the required length, in bytes, of the symmetric key.
const KeySize = chacha20poly1305.KeySize // 32

// Box performs XChaCha20-Poly1305 AEAD encryption with a random 24-byte
// nonce prefixed to the ciphertext, so Decrypt needs only the key.
type Box struct {
	aead cipherAEAD
}

type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
}

// New builds a Box from a 32-byte key.
func New(key []byte) (*Box, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: init aead: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Encrypt returns nonce || ciphertext || tag.
func (b *Box) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	sealed := b.aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt splits the leading nonce from ciphertext and authenticates the
// remainder, returning ErrAuthFailure on any tampering or wrong key.
func (b *Box) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := b.aead.NonceSize()
	if len(ciphertext) < nonceSize+b.aead.Overhead() {
		return nil, labelerrors.ErrAuthFailure
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := b.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, labelerrors.ErrAuthFailure
	}
	return plaintext, nil
}
