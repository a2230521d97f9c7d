package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GeneratePublicKey returns a URL-safe random key embedded in tracking
// snippets to identify a project.
func GeneratePublicKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate public key: %w", err)
	}
	return "sp_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
