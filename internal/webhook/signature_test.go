package webhook

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestComputeHMAC(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		secret  string
	}{
		{
			name:    "simple payload",
			payload: "hello world",
			secret:  "my-secret",
		},
		{
			name:    "empty payload",
			payload: "",
			secret:  "my-secret",
		},
		{
			name:    "json payload",
			payload: `{"key":"value"}`,
			secret:  "secret123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeHMAC([]byte(tt.payload), tt.secret)
			if !strings.HasPrefix(result, "sha256=") {
				t.Errorf("ComputeHMAC() result does not have 'sha256=' prefix: %v", result)
			}
			hexPart := strings.TrimPrefix(result, "sha256=")
			if len(hexPart) != 64 {
				t.Errorf("ComputeHMAC() hex part length = %v, want 64", len(hexPart))
			}
		})
	}
}

func TestVerifySignature(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		secret  string
		want    bool
	}{
		{
			name:    "valid signature",
			payload: "hello world",
			secret:  "my-secret",
			want:    true,
		},
		{
			name:    "wrong secret",
			payload: "hello world",
			secret:  "wrong-secret",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var signature string
			if tt.want {
				signature = ComputeHMAC([]byte(tt.payload), tt.secret)
			} else {
				signature = ComputeHMAC([]byte(tt.payload), "different-secret")
			}

			result := VerifySignature([]byte(tt.payload), signature, tt.secret)
			if result != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", result, tt.want)
			}
		})
	}

	t.Run("invalid signature", func(t *testing.T) {
		result := VerifySignature([]byte("hello world"), "sha256=invalid", "my-secret")
		if result {
			t.Errorf("VerifySignature() with invalid signature should return false")
		}
	})

	t.Run("empty signature", func(t *testing.T) {
		result := VerifySignature([]byte("hello world"), "", "my-secret")
		if result {
			t.Errorf("VerifySignature() with empty signature should return false")
		}
	})
}

func TestGenerateSecret(t *testing.T) {
	secret1, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}

	if !strings.HasPrefix(secret1, "jwsec_") {
		t.Errorf("GenerateSecret() secret does not have 'jwsec_' prefix: %v", secret1)
	}

	// prefix + 43 base64 characters
	if len(secret1) != len("jwsec_")+43 {
		t.Errorf("GenerateSecret() secret too short: %v", len(secret1))
	}

	secret2, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}

	if secret1 == secret2 {
		t.Errorf("GenerateSecret() generated identical secrets, should be random")
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"event":"task.updated","timestamp":"2025-01-15T10:30:00Z"}`)
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}

	signature := ComputeHMAC(payload, secret)
	if !VerifySignature(payload, signature, secret) {
		t.Errorf("Failed to verify signature that was just computed")
	}
}

func TestVerifyRequest(t *testing.T) {
	body := []byte(`{"event":"task.created"}`)
	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
	req.Header.Set("X-Jobwatch-Signature", ComputeHMAC(body, "s3cret"))

	if !VerifyRequest(req, body, "s3cret") {
		t.Error("VerifyRequest() rejected a correctly signed request")
	}
	if VerifyRequest(req, []byte(`{"event":"tampered"}`), "s3cret") {
		t.Error("VerifyRequest() accepted a tampered body")
	}
}
