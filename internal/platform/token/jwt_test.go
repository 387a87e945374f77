package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/platform/token"
)

func testUser() *domain.User {
	return &domain.User{
		ExternalID: "user-123",
		Email:      "alice@example.com",
		Role:       domain.RoleUser,
	}
}

func TestIssuePair_RoundTrip(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour, time.Hour)

	access, refresh, err := issuer.IssuePair(testUser())
	if err != nil {
		t.Fatalf("issue pair failed: %v", err)
	}

	claims, err := issuer.Verify(access, token.TypeAccess)
	if err != nil {
		t.Fatalf("access verify failed: %v", err)
	}
	if claims.UserID() != "user-123" || claims.Email != "alice@example.com" || claims.Role != domain.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := issuer.Verify(refresh, token.TypeRefresh); err != nil {
		t.Fatalf("refresh verify failed: %v", err)
	}
}

func TestVerify_TypeMismatch(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour, time.Hour)

	access, refresh, err := issuer.IssuePair(testUser())
	if err != nil {
		t.Fatalf("issue pair failed: %v", err)
	}

	// Every cross-type combination fails with the same error.
	if _, err := issuer.Verify(access, token.TypeRefresh); !errors.Is(err, token.ErrInvalid) {
		t.Fatalf("access-as-refresh: expected ErrInvalid, got %v", err)
	}
	if _, err := issuer.Verify(refresh, token.TypeAccess); !errors.Is(err, token.ErrInvalid) {
		t.Fatalf("refresh-as-access: expected ErrInvalid, got %v", err)
	}
	if _, err := issuer.Verify(access, token.TypeResetPassword); !errors.Is(err, token.ErrInvalid) {
		t.Fatalf("access-as-reset: expected ErrInvalid, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour, time.Hour)

	reset, err := issuer.IssuePurpose(testUser(), token.TypeResetPassword, -time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := issuer.Verify(reset, token.TypeResetPassword); !errors.Is(err, token.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for expired token, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour, time.Hour)
	other := token.NewIssuer("different-secret", time.Hour, time.Hour)

	access, _, err := issuer.IssuePair(testUser())
	if err != nil {
		t.Fatalf("issue pair failed: %v", err)
	}

	if _, err := other.Verify(access, token.TypeAccess); !errors.Is(err, token.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for wrong secret, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	issuer := token.NewIssuer("secret", time.Hour, time.Hour)

	if _, err := issuer.Verify("not.a.token", token.TypeAccess); !errors.Is(err, token.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for garbage input, got %v", err)
	}
}
