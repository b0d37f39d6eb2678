package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SecretKeyBytes is the entropy of a generated webhook secret. 32 random
// bytes hex-encoded gives a 64-character key.
const SecretKeyBytes = 32

// GenerateSecretKey returns a new random hex-encoded secret suitable for use
// as a capability token in a URL path.
func GenerateSecretKey() (string, error) {
	buf := make([]byte, SecretKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("crypto: failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
