package crypto_test

import (
	"testing"

	"hubspace/internal/crypto"
)

func TestFingerprint(t *testing.T) {
	a := crypto.Fingerprint("User@Example.com ")
	b := crypto.Fingerprint("user@example.com")
	if a != b {
		t.Fatalf("fingerprint should ignore case and spaces: %s != %s", a, b)
	}
	if len(a) != 20 {
		t.Fatalf("fingerprint length = %d, want 20", len(a))
	}
	if crypto.Fingerprint("other@example.com") == a {
		t.Fatal("different users share a fingerprint")
	}
}
