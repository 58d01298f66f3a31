package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, expiresAt, err := tm.Issue("admin", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("token must expire in the future")
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "admin" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", time.Hour).Issue("admin", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenManager("secret-b", time.Hour).Verify(token); err == nil {
		t.Fatal("expected verification failure for wrong secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, _, err := NewTokenManager("secret", -time.Minute).Issue("admin", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenManager("secret", time.Hour).Verify(token); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}
