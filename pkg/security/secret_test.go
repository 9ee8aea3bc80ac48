package security

import (
	"strings"
	"testing"

	"github.com/entregave/dispatch-backend/pkg/config"
)

func testArgonConfig() config.APIKeyConfig {
	return config.APIKeyConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecret("sk-super-secret", testArgonConfig())
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	ok, err := VerifySecret("sk-super-secret", hash)
	if err != nil {
		t.Fatalf("VerifySecret failed: %v", err)
	}
	if !ok {
		t.Fatal("expected matching secret to verify")
	}

	ok, err = VerifySecret("wrong", hash)
	if err != nil {
		t.Fatalf("VerifySecret failed: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched secret to fail")
	}
}

func TestVerifySecret_MalformedHash(t *testing.T) {
	if _, err := VerifySecret("x", "not-a-hash"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(24)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if len(token) < 30 {
		t.Fatalf("token too short: %s", token)
	}
	other, err := GenerateToken(24)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == other {
		t.Fatal("expected distinct tokens")
	}
}
