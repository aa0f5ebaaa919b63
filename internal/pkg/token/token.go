package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewRefreshToken generates a cryptographically random 64-character hex token
// used as the opaque session refresh token.
func NewRefreshToken() (string, error) {
	return random(32)
}

// NewAuthToken generates the 40-character hex API token minted for a user on
// account activation.
func NewAuthToken() (string, error) {
	return random(20)
}

func random(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
