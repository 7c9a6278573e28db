package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Cipher seals secrets stored at rest, such as the bank webhook token.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(sealed string) (string, error)
}

const sealedPrefix = "gcm:"

var ErrCiphertext = errors.New("malformed ciphertext")

var _ Cipher = (*EncryptionService)(nil)

// EncryptionService is AES-GCM with a random nonce per message. Output is
// "gcm:" + base64(nonce || ciphertext).
type EncryptionService struct {
	gcm cipher.AEAD
	aad []byte
}

// NewEncryptionService builds a service for key (16, 24 or 32 bytes). purpose
// is bound as additional data so a value sealed for one column cannot be
// replayed into another.
func NewEncryptionService(key, purpose string) (*EncryptionService, error) {
	k := []byte(key)
	n := len(k)
	if n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes; got %d", n)
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &EncryptionService{gcm: gcm, aad: []byte(purpose)}, nil
}

func (e *EncryptionService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	ct := e.gcm.Seal(nonce, nonce, []byte(plaintext), e.aad)
	return sealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens values produced by Encrypt. Values without the prefix are
// returned unchanged so rows written before encryption was enabled still load.
func (e *EncryptionService) Decrypt(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return sealed, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	ns := e.gcm.NonceSize()
	if len(data) < ns {
		return "", ErrCiphertext
	}
	nonce, ct := data[:ns], data[ns:]
	pt, err := e.gcm.Open(nil, nonce, ct, e.aad)
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", err)
	}
	return string(pt), nil
}

// PlainCipher stores values as-is. Only for development setups without a key.
type PlainCipher struct{}

func (PlainCipher) Encrypt(s string) (string, error) { return s, nil }

func (PlainCipher) Decrypt(s string) (string, error) {
	if strings.HasPrefix(s, sealedPrefix) {
		return "", fmt.Errorf("%w: value is encrypted but no key is configured", ErrCiphertext)
	}
	return s, nil
}
