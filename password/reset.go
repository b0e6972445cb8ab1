package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const resetTokenBytes = 32

// NewResetToken generates a 256-bit reset token and its SHA-256 commitment,
// both hex encoded. The caller hands the token to the user and persists only
// the commitment; the plaintext token is never stored.
func NewResetToken() (token string, commitment string, err error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}

	token = hex.EncodeToString(raw)
	digest := sha256.Sum256([]byte(token))
	commitment = hex.EncodeToString(digest[:])

	return token, commitment, nil
}

// VerifyResetToken recomputes the commitment of the presented token and
// compares it against the stored one in constant time. Malformed commitments
// report false.
func VerifyResetToken(token, commitment string) bool {
	if token == "" || commitment == "" {
		return false
	}

	stored, err := hex.DecodeString(commitment)
	if err != nil || len(stored) != sha256.Size {
		return false
	}

	digest := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(digest[:], stored) == 1
}
