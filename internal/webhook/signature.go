package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
)

const signaturePrefix = "sha256="

// ComputeHMAC signs payload with secret, in the form sent as X-Jobwatch-Signature.
func ComputeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches payload under secret.
func VerifySignature(payload []byte, signature string, secret string) bool {
	expected := ComputeHMAC(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// VerifyRequest checks the signature header of a received delivery against body.
// Receivers use it after reading the request body.
func VerifyRequest(r *http.Request, body []byte, secret string) bool {
	return VerifySignature(body, r.Header.Get("X-Jobwatch-Signature"), secret)
}

// GenerateSecret returns a random signing secret with a "jwsec_" prefix.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return "jwsec_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
