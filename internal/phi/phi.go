// Package phi encrypts protected health information at rest.
package phi

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// ErrCiphertext is returned for ciphertext that fails authentication.
var ErrCiphertext = errors.New("phi: malformed ciphertext")

// Decrypter turns stored ciphertext back into plaintext.
type Decrypter interface {
	Decrypt(c domain.Ciphertext) (string, error)
}

// Cipher encrypts and decrypts PHI values.
type Cipher interface {
	Decrypter
	Encrypt(plaintext string) (domain.Ciphertext, error)
}

// XChaCha seals values with XChaCha20-Poly1305. The random nonce is prepended to the output.
type XChaCha struct {
	aead cipher.AEAD
}

var _ Cipher = (*XChaCha)(nil)

// NewXChaCha creates a cipher from a 32-byte key.
func NewXChaCha(key []byte) (*XChaCha, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("phi key: %w", err)
	}
	return &XChaCha{aead: aead}, nil
}

// NewXChaChaHex creates a cipher from a hex-encoded 32-byte key.
func NewXChaChaHex(key string) (*XChaCha, error) {
	raw, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("phi key: %w", err)
	}
	return NewXChaCha(raw)
}

// Encrypt seals plaintext. Empty input stays empty so absent fields remain absent.
func (x *XChaCha) Encrypt(plaintext string) (domain.Ciphertext, error) {
	if plaintext == "" {
		return nil, nil
	}
	nonce := make([]byte, x.aead.NonceSize(), x.aead.NonceSize()+len(plaintext)+x.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("phi nonce: %w", err)
	}
	return x.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (x *XChaCha) Decrypt(c domain.Ciphertext) (string, error) {
	if len(c) == 0 {
		return "", nil
	}
	ns := x.aead.NonceSize()
	if len(c) < ns+x.aead.Overhead() {
		return "", ErrCiphertext
	}
	plain, err := x.aead.Open(nil, c[:ns], c[ns:], nil)
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}
