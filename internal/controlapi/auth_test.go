package controlapi

import (
	"testing"
	"time"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func TestNewTokenService_ValidConfig(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if svc == nil {
		t.Fatal("expected service to be non-nil")
	}
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{Secret: "too-short"})
	if err != ErrInvalidSecretLength {
		t.Fatalf("expected ErrInvalidSecretLength, got: %v", err)
	}
}

func TestNewTokenService_Defaults(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if svc.config.Issuer != "someipd" {
		t.Errorf("expected default issuer 'someipd', got %q", svc.config.Issuer)
	}
	if svc.config.TokenDuration != time.Hour {
		t.Errorf("expected default duration 1h, got %v", svc.config.TokenDuration)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc, _ := NewTokenService(TokenConfig{Secret: testSecret})

	token, err := svc.GenerateToken(RoleAdmin)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("expected role admin, got %q", claims.Role)
	}
	if !claims.IsAdmin() {
		t.Error("expected IsAdmin() to return true")
	}
}

func TestClaims_IsAdmin(t *testing.T) {
	tests := []struct {
		role     Role
		expected bool
	}{
		{RoleAdmin, true},
		{RoleOperator, false},
		{"", false},
		{"Admin", false}, // case-sensitive
	}

	for _, tc := range tests {
		claims := &Claims{Role: tc.role}
		if claims.IsAdmin() != tc.expected {
			t.Errorf("IsAdmin() for role %q: expected %v, got %v", tc.role, tc.expected, claims.IsAdmin())
		}
	}
}

func TestValidateToken_Invalid(t *testing.T) {
	svc, _ := NewTokenService(TokenConfig{Secret: testSecret})

	_, err := svc.ValidateToken("not-a-token")
	if err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got: %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer, _ := NewTokenService(TokenConfig{Secret: testSecret})
	verifier, _ := NewTokenService(TokenConfig{Secret: "a-different-secret-of-32-chars!!"})

	token, _ := issuer.GenerateToken(RoleOperator)
	_, err := verifier.ValidateToken(token)
	if err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got: %v", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc, _ := NewTokenService(TokenConfig{Secret: testSecret, TokenDuration: time.Nanosecond})

	token, _ := svc.GenerateToken(RoleOperator)
	time.Sleep(time.Millisecond)

	_, err := svc.ValidateToken(token)
	if err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got: %v", err)
	}
}
