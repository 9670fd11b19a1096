package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("test-secret-key", 0)

	token, issued, err := issuer.Issue("u-1", "alice", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "u-1" {
		t.Errorf("expected user_id u-1, got %q", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username 'alice', got %q", claims.Username)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", claims.Role)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Errorf("expected JTI %q, got %q", issued.ID, claims.ID)
	}
}

func TestUniqueJTI(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	_, a, _ := issuer.Issue("u-1", "alice", model.RoleUser)
	_, b, _ := issuer.Issue("u-1", "alice", model.RoleUser)
	if a.ID == b.ID {
		t.Error("expected distinct JTIs")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, _ := NewIssuer("secret1", 0).Issue("u-1", "alice", model.RoleUser)

	_, err := NewIssuer("secret2", 0).Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	if _, err := NewIssuer("secret", 0).Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }
	token, _, err := issuer.Issue("u-1", "alice", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	issuer.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewIssuer("test", 0)
	_, claims, _ := issuer.Issue("u-1", "test", model.RoleUser)

	diff := time.Now().Add(DefaultTokenTTL).Sub(claims.ExpiresAt.Time)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
}
