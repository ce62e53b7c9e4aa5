package auth

import (
	"errors"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	token, expiresAt, err := m.GenerateAccessToken(42, "sid-1", "ADMIN")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.SID != "sid-1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Equal(expiresAt.Truncate(time.Second)) {
		t.Fatalf("expiry mismatch: %v vs %v", claims.ExpiresAt, expiresAt)
	}
}

func TestAccessTokenRejectsUnknownRole(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	if _, _, err := m.GenerateAccessToken(1, "sid", "superuser"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestAccessTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	issuer := NewJWTManager("secret", time.Minute)
	token, _, err := issuer.GenerateAccessToken(7, "sid", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewJWTManager("another-secret", time.Minute)
	if _, err := other.ParseAccessToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign secret: got %v", err)
	}

	late := NewJWTManager("secret", time.Minute)
	late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := late.ParseAccessToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expired token: got %v", err)
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	a, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	b, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	if a == b || len(a) != 43 {
		t.Fatalf("unexpected tokens: %q %q", a, b)
	}
}
