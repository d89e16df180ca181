package auth

import (
	"strings"
	"testing"
	"time"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer abc123", "abc123", false},
		{"case-insensitive scheme", "bearer abc123", "abc123", false},
		{"empty header", "", "", true},
		{"missing token", "Bearer ", "", true},
		{"wrong scheme", "Basic abc123", "", true},
		{"no scheme", "abc123", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractToken(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestJWTAuth_RoundTrip(t *testing.T) {
	a, err := NewJWTAuth("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTAuth failed: %v", err)
	}

	token, err := a.GenerateToken("user-123", "Owner@Example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	user, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if user.ID != "user-123" {
		t.Errorf("ID = %q, want user-123", user.ID)
	}
	if user.Email != "owner@example.com" {
		t.Errorf("Email not lowercased: %q", user.Email)
	}
}

func TestJWTAuth_RejectsWrongSecret(t *testing.T) {
	a, _ := NewJWTAuth("secret-a", time.Hour)
	b, _ := NewJWTAuth("secret-b", time.Hour)

	token, err := a.GenerateToken("user-123", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := b.ValidateToken(token); err == nil {
		t.Error("Token signed with another secret was accepted")
	}
}

func TestJWTAuth_RejectsExpiredToken(t *testing.T) {
	a, _ := NewJWTAuth("test-secret", -time.Minute)

	token, err := a.GenerateToken("user-123", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := a.ValidateToken(token); err == nil {
		t.Error("Expired token was accepted")
	}
}

func TestJWTAuth_RejectsGarbage(t *testing.T) {
	a, _ := NewJWTAuth("test-secret", time.Hour)

	if _, err := a.ValidateToken("not.a.token"); err == nil {
		t.Error("Garbage token was accepted")
	}
	if _, err := a.ValidateToken(strings.Repeat("x", 64)); err == nil {
		t.Error("Opaque string was accepted")
	}
}

func TestNewJWTAuth_RequiresSecret(t *testing.T) {
	if _, err := NewJWTAuth("", time.Hour); err == nil {
		t.Error("Empty secret was accepted")
	}
}
