package services

import (
	"crypto/rand"
	"fmt"
)

// TokenLength is the fixed length of participant tokens.
const TokenLength = 6

// tokenAlphabet excludes visually confusable characters (0/O, 1/I).
// Exactly 32 characters, so masking a random byte to 5 bits picks
// uniformly with no modulo bias.
const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewToken returns a fresh 6-character participant token. It makes no
// uniqueness guarantee; callers must retry against the record store on
// collision.
func NewToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i := range b {
		b[i] = tokenAlphabet[b[i]&31]
	}
	return string(b), nil
}
