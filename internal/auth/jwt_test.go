package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		role string
	}{
		{"auditor", "auditor"},
		{"manager", "manager"},
		{"no role", ""},
	}

	manager := NewJWTManager(testSecret, "inventory-test", 15*time.Minute)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			userID := uuid.New()
			token, err := manager.GenerateAccessToken(userID, tt.role)
			if err != nil {
				t.Fatalf("GenerateAccessToken failed: %v", err)
			}

			gotID, gotRole, err := manager.ValidateToken(context.Background(), token)
			if err != nil {
				t.Fatalf("ValidateToken failed: %v", err)
			}
			if gotID != userID {
				t.Errorf("expected userID %s, got %s", userID, gotID)
			}
			if gotRole != tt.role {
				t.Errorf("expected role %q, got %q", tt.role, gotRole)
			}
		})
	}
}

func TestJWTManager_ValidateAccessToken_Expired(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, "inventory-test", -time.Minute)
	token, err := manager.GenerateAccessToken(uuid.New(), "auditor")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, _, err := manager.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTManager_ValidateAccessToken_InvalidSignature(t *testing.T) {
	t.Parallel()

	signer := NewJWTManager("another-secret-that-is-also-32-chars-long", "inventory-test", time.Minute)
	validator := NewJWTManager(testSecret, "inventory-test", time.Minute)

	token, err := signer.GenerateAccessToken(uuid.New(), "auditor")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, _, err := validator.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestJWTManager_ValidateAccessToken_WrongIssuer(t *testing.T) {
	t.Parallel()

	signer := NewJWTManager(testSecret, "someone-else", time.Minute)
	validator := NewJWTManager(testSecret, "inventory-test", time.Minute)

	token, err := signer.GenerateAccessToken(uuid.New(), "auditor")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	_, _, err = validator.ValidateAccessToken(token)
	if err == nil {
		t.Fatal("expected error for wrong issuer")
	}
	if !strings.Contains(err.Error(), "issuer") {
		t.Errorf("expected issuer error, got %v", err)
	}
}

func TestJWTManager_ValidateAccessToken_NoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "inventory-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	validator := NewJWTManager(testSecret, "inventory-test", time.Minute)
	if _, _, err := validator.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for unsigned token")
	}
}

func TestJWTManager_ValidateAccessToken_MalformedAndEmpty(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, "inventory-test", time.Minute)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, _, err := manager.ValidateAccessToken(token); err == nil {
			t.Errorf("expected error for %q", token)
		}
	}
}

func TestJWTManager_Audience(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	forAudit := NewJWTManager(testSecret, "inventory-test", time.Minute, WithAudience("inventory-audit"))
	forOther := NewJWTManager(testSecret, "inventory-test", time.Minute, WithAudience("cabinet-ui"))
	noAudience := NewJWTManager(testSecret, "inventory-test", time.Minute)

	token, err := forAudit.GenerateAccessToken(userID, "auditor")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, role, err := forAudit.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("same audience: %v", err)
	}
	if got != userID || role != "auditor" {
		t.Errorf("got (%s, %q), want (%s, auditor)", got, role, userID)
	}

	if _, _, err := forOther.ValidateAccessToken(token); err == nil {
		t.Error("expected error for foreign audience")
	}

	bare, err := noAudience.GenerateAccessToken(userID, "auditor")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := forAudit.ValidateAccessToken(bare); err == nil {
		t.Error("expected error when aud claim is missing")
	}
}

func TestJWTManager_Leeway(t *testing.T) {
	t.Parallel()

	signer := NewJWTManager(testSecret, "inventory-test", -10*time.Second)
	token, err := signer.GenerateAccessToken(uuid.New(), "auditor")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	strict := NewJWTManager(testSecret, "inventory-test", time.Minute)
	if _, _, err := strict.ValidateAccessToken(token); err == nil {
		t.Error("expected strict validator to reject a token expired 10s ago")
	}

	tolerant := NewJWTManager(testSecret, "inventory-test", time.Minute, WithLeeway(30*time.Second))
	if _, _, err := tolerant.ValidateAccessToken(token); err != nil {
		t.Errorf("expected 30s leeway to accept, got %v", err)
	}
}
