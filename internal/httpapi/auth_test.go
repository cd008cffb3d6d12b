package httpapi

import (
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"nexuserp/backend/internal/domain"
)

func TestIssuedTokenRoundTrips(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)

	token, expiresAt, err := manager.Issue("admin@erp.com", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected expiry in the future, got %s", expiresAt)
	}

	actor, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Email != "admin@erp.com" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestTokenFromOtherSecretIsRejected(t *testing.T) {
	issuer := NewAuthManager("secret-one", time.Hour)
	verifier := NewAuthManager("secret-two", time.Hour)

	token, _, err := issuer.Issue("staff@erp.com", domain.RoleStaff)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Minute)
	manager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := manager.Issue("staff@erp.com", domain.RoleStaff)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	manager.now = time.Now
	if _, err := manager.ParseToken(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenWithUnknownRoleIsRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)
	token, err := manager.sign("someone@erp.com", domain.Role("OWNER"), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected unknown role to be rejected")
	}
}

func TestNoneAlgorithmIsRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)
	claims := erpClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "admin@erp.com",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: domain.RoleAdmin,
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected unsigned token to be rejected")
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("unexpected token shape %q", token)
	}
}
