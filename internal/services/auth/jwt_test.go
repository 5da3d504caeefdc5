package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWTIssueAndValidate(t *testing.T) {
	mgr := NewJWTManager("test-secret", 15*time.Minute)

	token, err := mgr.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := mgr.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTIssueRequiresUserID(t *testing.T) {
	mgr := NewJWTManager("test-secret", 15*time.Minute)

	if _, err := mgr.Issue("", "alice"); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestJWTValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", 15*time.Minute).Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewJWTManager("secret-b", 15*time.Minute).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTValidateRejectsExpiredToken(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Minute)
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return issuedAt }

	token, err := mgr.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	mgr.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	if _, err := mgr.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestJWTValidateRejectsGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret", 15*time.Minute)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := mgr.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}
