package auth

import (
	"strings"
	"testing"
)

const testSecret = "test-jwt-secret"

func TestSessionToken_RoundTrip(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "alice")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	claims, err := ValidateSessionToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateSessionToken: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("username = %q, want alice", claims.Username)
	}
}

func TestValidateSessionToken_WrongSecret(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "alice")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if _, err := ValidateSessionToken("other-secret", token); err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateSessionToken_Tampered(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "alice")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	tampered := parts[0] + "." + parts[1] + "." + "AAAA"
	if _, err := ValidateSessionToken(testSecret, tampered); err == nil {
		t.Error("expected validation to fail for tampered signature")
	}
}

func TestValidateSessionToken_Garbage(t *testing.T) {
	if _, err := ValidateSessionToken(testSecret, "not-a-token"); err == nil {
		t.Error("expected validation to fail for garbage input")
	}
}
