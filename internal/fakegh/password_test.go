package fakegh

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func testPassword_HashVerifyRoundTrip(t *rapid.T) {
	password := rapid.StringMatching(`[a-zA-Z0-9 !@#]{12,40}`).Draw(t, "password")
	other := rapid.StringN(1, 64, -1).Filter(func(s string) bool { return s != password }).Draw(t, "other")

	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if strings.Contains(hash, password) {
		t.Fatalf("hash %q contains the plaintext", hash)
	}
	if !verifyPassword(password, hash) {
		t.Fatalf("verifyPassword rejected the original password")
	}
	if verifyPassword(other, hash) {
		t.Fatalf("verifyPassword accepted a different password")
	}
}

func TestPassword_HashVerifyRoundTrip(t *testing.T) {
	rapid.Check(t, testPassword_HashVerifyRoundTrip)
}

func TestPassword_SaltedHashesDiffer(t *testing.T) {
	a, err := hashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	b, err := hashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestPassword_RejectsMalformedHashes(t *testing.T) {
	for _, h := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		if verifyPassword("x", h) {
			t.Fatalf("verifyPassword accepted malformed hash %q", h)
		}
	}
}
