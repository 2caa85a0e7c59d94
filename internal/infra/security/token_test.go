package security

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not URL-safe base64: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("expected 32 random bytes, got %d", len(raw))
	}

	other, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if token == other {
		t.Fatal("expected distinct tokens across calls")
	}
}

func TestGenerateSecureTokenRejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
	if _, err := GenerateSecureToken(-4); err == nil {
		t.Fatal("expected error for negative length")
	}
}

func TestHashTokenIsDeterministicSHA256(t *testing.T) {
	sum := sha256.Sum256([]byte("reset-token-value"))
	want := hex.EncodeToString(sum[:])

	if got := HashToken("reset-token-value"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if HashToken("reset-token-value") != HashToken("reset-token-value") {
		t.Fatal("expected deterministic hashing")
	}
	if HashToken("a") == HashToken("b") {
		t.Fatal("expected distinct hashes for distinct inputs")
	}
}
