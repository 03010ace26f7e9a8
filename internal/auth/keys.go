package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// The server has a single admin credential, configured as a plain key
// (ADMIN_API_KEY), as a bcrypt hash of it (ADMIN_API_KEY_HASH), or both.

const (
	// AdminKeyPrefix marks keys produced by GenerateAdminKey.
	AdminKeyPrefix = "jwk_"

	adminKeyBytes = 32 // 43 characters once encoded
	hashCost      = 12
)

// GenerateAdminKey returns a random admin key.
func GenerateAdminKey() (string, error) {
	b := make([]byte, adminKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return AdminKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAdminKey hashes key with bcrypt, for ADMIN_API_KEY_HASH.
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hash), nil
}

// matchesKey compares token with the plain admin key in constant time.
// An unset key matches nothing.
func matchesKey(token, key string) bool {
	return key != "" && subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1
}

// matchesHash reports whether token is the key behind a bcrypt hash.
// An unset hash matches nothing.
func matchesHash(token, hash string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}

// BearerToken returns the credential of an Authorization header. The scheme
// is case-insensitive and a bare scheme yields "". A header without a scheme
// is taken as the token itself.
func BearerToken(header string) string {
	h := strings.TrimSpace(header)
	scheme, rest, found := strings.Cut(h, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return h
	}
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}
