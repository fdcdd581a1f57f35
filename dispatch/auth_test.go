package dispatch

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
)

func TestAuthenticatorRoundTrip(t *testing.T) {
	a := NewAuthenticator("top-secret")
	token, err := a.Sign(jwt.MapClaims{"sub": "client-1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := a.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims["sub"] != "client-1" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestAuthenticatorRejectsWrongSecret(t *testing.T) {
	a := NewAuthenticator("secret-a")
	token, _ := a.Sign(jwt.MapClaims{"sub": "x"})
	b := NewAuthenticator("secret-b")
	if _, err := b.Verify(token); err == nil {
		t.Fatal("expected verification to fail with a different secret")
	}
}

func TestNilAuthenticatorWhenNoSecret(t *testing.T) {
	if NewAuthenticator("") != nil {
		t.Fatal("expected nil authenticator when no secret configured")
	}
}
