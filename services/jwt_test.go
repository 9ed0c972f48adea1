package services

import (
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := &JWTService{
		AccessTokenDuration: time.Hour,
		jwtSecretKey:        "test-secret",
	}

	token, err := svc.ToJWT("user-123")
	if err != nil {
		t.Fatalf("ToJWT failed: %v", err)
	}

	userID, err := svc.VerifyJWTToken(token)
	if err != nil {
		t.Fatalf("VerifyJWTToken failed: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("expected user-123, got %s", userID)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	issuer := &JWTService{AccessTokenDuration: time.Hour, jwtSecretKey: "secret-a"}
	verifier := &JWTService{AccessTokenDuration: time.Hour, jwtSecretKey: "secret-b"}

	token, err := issuer.ToJWT("user-123")
	if err != nil {
		t.Fatalf("ToJWT failed: %v", err)
	}

	if _, err := verifier.VerifyJWTToken(token); err == nil {
		t.Error("token signed with a different secret must not verify")
	}
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	svc := &JWTService{
		AccessTokenDuration: -time.Hour,
		jwtSecretKey:        "test-secret",
	}

	token, err := svc.ToJWT("user-123")
	if err != nil {
		t.Fatalf("ToJWT failed: %v", err)
	}

	if _, err := svc.VerifyJWTToken(token); err == nil {
		t.Error("expired token must not verify")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	svc := &JWTService{}

	if _, err := svc.ExtractTokenFromHeader(""); err == nil {
		t.Error("empty header must be rejected")
	}
	if _, err := svc.ExtractTokenFromHeader("Basic abc"); err == nil {
		t.Error("non-bearer header must be rejected")
	}

	token, err := svc.ExtractTokenFromHeader("Bearer abc.def.ghi")
	if err != nil {
		t.Fatalf("ExtractTokenFromHeader failed: %v", err)
	}
	if token != "abc.def.ghi" {
		t.Errorf("got %q", token)
	}
}
