package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// IDBytes is the entropy of generated identifiers (96 bits).
const IDBytes = 12

// NewID returns a cryptographically random, URL-safe identifier.
func NewID() (string, error) {
	buf := make([]byte, IDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
