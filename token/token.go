// Package token issues and checks the one-time form token that guards every
// state-changing request against replay and cross-site submission.
package token

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"github.com/gorilla/securecookie"
)

const size = 32

var ErrGenerate = errors.New("token: random source failed")

// Store keeps the current token for one visitor.
type Store interface {
	Token() string
	SetToken(string)
}

// Issue creates a fresh token, replacing any previous one.
func Issue(s Store) (string, error) {
	b := securecookie.GenerateRandomKey(size)
	if b == nil {
		return "", ErrGenerate
	}
	t := base64.RawURLEncoding.EncodeToString(b)
	s.SetToken(t)
	return t, nil
}

// Validate compares submitted against the stored token. A match consumes the
// token so it cannot be replayed.
func Validate(s Store, submitted string) bool {
	stored := s.Token()
	if stored == "" || submitted == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) != 1 {
		return false
	}
	s.SetToken("")
	return true
}
