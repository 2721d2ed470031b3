package auth

import (
	"strings"
	"testing"
)

func TestHashVerify(t *testing.T) {
	h, err := HashPassword("secret-123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if !VerifyPassword(h, "secret-123") {
		t.Fatalf("expected verify to pass")
	}
	if VerifyPassword(h, "wrong") {
		t.Fatalf("expected verify to fail")
	}
}

func TestHashFormat(t *testing.T) {
	h, err := HashPassword("secret-123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	key, salt, ok := strings.Cut(h, ".")
	if !ok {
		t.Fatalf("expected key.salt form, got %q", h)
	}
	if len(key) != scryptKeyLen*2 || len(salt) != saltLen*2 {
		t.Fatalf("unexpected component lengths: key=%d salt=%d", len(key), len(salt))
	}
}

func TestHashSaltsDiffer(t *testing.T) {
	a, err := HashPassword("secret-123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	b, err := HashPassword("secret-123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password must not collide")
	}
}

func TestVerifyRejectsMutatedHash(t *testing.T) {
	h, err := HashPassword("secret-123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	// Flip one hex digit of the derived key.
	flipped := []byte(h)
	if flipped[0] == '0' {
		flipped[0] = '1'
	} else {
		flipped[0] = '0'
	}
	if VerifyPassword(string(flipped), "secret-123") {
		t.Fatalf("mutated hash must not verify")
	}
}

func TestVerifyFailsClosedOnMalformedInput(t *testing.T) {
	cases := []string{
		"",
		".",
		"nodot",
		"abc.",
		".abc",
		"zz.zz",
		"abcd.zzzz",
		"zzzz.abcd",
		"abc.abcd",
	}
	for _, stored := range cases {
		if VerifyPassword(stored, "whatever") {
			t.Fatalf("expected verify to fail for stored form %q", stored)
		}
	}
}

func TestOpaqueToken(t *testing.T) {
	raw, hash, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if raw == "" || hash == "" {
		t.Fatalf("empty token parts")
	}
	if HashToken(raw) != hash {
		t.Fatalf("hash mismatch")
	}
	raw2, _, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if raw == raw2 {
		t.Fatalf("tokens must be unique")
	}
}
