package security

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/ManuelReschke/LingoFox/internal/pkg/env"
)

var (
	ErrInvalidKey        = errors.New("encryption key must be 64 hex characters")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// TokenCipher seals shop access tokens with XChaCha20-Poly1305. The output is
// base64(nonce || ciphertext). The shop domain is bound as additional data so
// a token cannot be moved to another shop's row.
type TokenCipher struct {
	aead cipher.AEAD
}

func NewTokenCipher(hexKey string) (*TokenCipher, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &TokenCipher{aead: aead}, nil
}

// NewTokenCipherFromEnv reads TOKEN_ENCRYPTION_KEY.
func NewTokenCipherFromEnv() (*TokenCipher, error) {
	key := env.GetEnv("TOKEN_ENCRYPTION_KEY", "")
	if key == "" {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY is not configured")
	}
	return NewTokenCipher(key)
}

func (c *TokenCipher) Seal(shop, plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), []byte(shop))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *TokenCipher) Open(shop, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}
	nonce, body := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, body, []byte(shop))
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}
