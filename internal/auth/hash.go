// Package auth implements token-based authentication for the bridge. The
// server never sees a plaintext token: clients send the hex-encoded SHA-256
// digest of their secret, which is compared byte-for-byte against the
// configured digest.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// HashToken returns the hex-encoded SHA-256 digest of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyTokenHash reports whether token hashes to tokenHash.
func VerifyTokenHash(token, tokenHash string) bool {
	return hashesEqual(HashToken(token), tokenHash)
}

func hashesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateToken returns a fresh URL-safe random token.
func GenerateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
