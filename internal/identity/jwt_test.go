package identity

import (
	"testing"
	"time"
)

func TestSignAndVerify_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Sign(secret, "u42", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := Verify(secret, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "u42" {
		t.Fatalf("expected subject u42, got %q", claims.Subject)
	}
}

func TestVerify_WrongSecretFails(t *testing.T) {
	token, err := Sign([]byte("correct-secret"), "u1", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := Verify([]byte("wrong-secret"), token); err != ErrBadSignature {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerify_ExpiredTokenFails(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Sign(secret, "u1", -time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := Verify(secret, token); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerify_MalformedTokenFails(t *testing.T) {
	if _, err := Verify([]byte("secret"), "not-a-jwt"); err != ErrMalformedToken {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}
