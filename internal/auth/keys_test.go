package auth

import (
	"strings"
	"testing"
)

func TestGenerateAdminKey(t *testing.T) {
	key, err := GenerateAdminKey()
	if err != nil {
		t.Fatalf("GenerateAdminKey() error = %v", err)
	}

	if !strings.HasPrefix(key, AdminKeyPrefix) {
		t.Errorf("GenerateAdminKey() = %v, want prefix %v", key, AdminKeyPrefix)
	}
	if want := len(AdminKeyPrefix) + 43; len(key) != want {
		t.Errorf("GenerateAdminKey() length = %v, want %v", len(key), want)
	}

	other, _ := GenerateAdminKey()
	if other == key {
		t.Error("two generated keys are equal")
	}
}

func TestHashAdminKey(t *testing.T) {
	key := "jwk_test-key-12345"

	hash, err := HashAdminKey(key)
	if err != nil {
		t.Fatalf("HashAdminKey() error = %v", err)
	}

	if !matchesHash(key, hash) {
		t.Error("hash does not match its key")
	}
	if matchesHash("wrong-key", hash) {
		t.Error("hash matches a different key")
	}
	if matchesHash(key, "") {
		t.Error("unset hash must match nothing")
	}
}

func TestMatchesKey(t *testing.T) {
	tests := []struct {
		name  string
		token string
		key   string
		want  bool
	}{
		{"equal", "admin-123", "admin-123", true},
		{"not equal", "admin-456", "admin-123", false},
		{"prefix only", "admin", "admin-123", false},
		{"empty token", "", "admin-123", false},
		{"unset key", "admin-123", "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesKey(tt.token, tt.key); got != tt.want {
				t.Errorf("matchesKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"with Bearer prefix", "Bearer token123", "token123"},
		{"with bearer lowercase", "bearer token456", "token456"},
		{"with extra spaces", "Bearer  token789  ", "token789"},
		{"without Bearer prefix", "token999", "token999"},
		{"empty", "", ""},
		{"scheme with trailing space", "Bearer ", ""},
		{"bare scheme", "Bearer", ""},
		{"uppercase scheme", "BEARER abc", "abc"},
		{"token starting with bearer", "bearerabc", "bearerabc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BearerToken(tt.header); got != tt.want {
				t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
