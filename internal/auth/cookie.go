package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCookieFormat    = errors.New("invalid cookie format")
	ErrCookieSignature = errors.New("invalid signature")
)

// Signer signs and verifies cookie values with an HMAC key.
type Signer struct {
	key []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("cookie secret must not be empty")
	}
	return &Signer{key: []byte(secret)}, nil
}

// RandomSecret returns a fresh 32-byte key, base64 encoded.
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Signer) mac(value string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(value))
	return mac.Sum(nil)
}

// Sign creates a signed cookie value in the format "value|signature"
func (s *Signer) Sign(value string) string {
	return fmt.Sprintf("%s|%s", base64.URLEncoding.EncodeToString([]byte(value)), base64.URLEncoding.EncodeToString(s.mac(value)))
}

// Verify checks a signed cookie and returns the original value
func (s *Signer) Verify(signedValue string) (string, error) {
	parts := strings.Split(signedValue, "|")
	if len(parts) != 2 {
		return "", ErrCookieFormat
	}

	valueBytes, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: value encoding", ErrCookieFormat)
	}
	value := string(valueBytes)

	signature, err := base64.URLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: signature encoding", ErrCookieFormat)
	}

	if !hmac.Equal(signature, s.mac(value)) {
		return "", ErrCookieSignature
	}
	return value, nil
}
