// Package auth hashes passwords and issues/verifies opaque API keys.
// Keys are stored only as sha256 digests; the raw token is returned to
// the client once, at issuance, and never recoverable afterwards.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

type Service struct{}

func New() *Service {
	return &Service{}
}

func (s *Service) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func (s *Service) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewKey generates a raw API key token and its stored digest.
func (s *Service) NewKey() (raw, digest string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(b)
	return raw, s.KeyHash(raw), nil
}

func (s *Service) KeyHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyKey compares the digest of a presented token against the stored
// digest in constant time.
func (s *Service) VerifyKey(storedHash, presented string) bool {
	if presented == "" || storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.KeyHash(presented)), []byte(storedHash)) == 1
}
