package security

import (
	"crypto/rsa"
	"testing"
)

func TestParsePrivateKeyInlinePEM(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey() error = %v", err)
	}
	if _, ok := signer.Public().(*rsa.PublicKey); !ok {
		t.Errorf("signer.Public() = %T, want *rsa.PublicKey", signer.Public())
	}
}

func TestParsePublicKeyInlinePEM(t *testing.T) {
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey() error = %v", err)
	}
	if got := KeyAlg(pub); got != "RS256" {
		t.Errorf("KeyAlg() = %q, want %q", got, "RS256")
	}
}

func TestParsePrivateKeyInvalid(t *testing.T) {
	cases := []string{"", "not pem at all", "-----BEGIN GARBAGE-----\nabc\n-----END GARBAGE-----"}
	for _, s := range cases {
		if _, err := ParsePrivateKey(s); err == nil {
			t.Errorf("ParsePrivateKey(%q) expected error, got nil", s)
		}
	}
}

func TestLoadPEMMissingFile(t *testing.T) {
	if _, err := LoadPEM("/nonexistent/key.pem"); err == nil {
		t.Error("LoadPEM() with missing file expected error, got nil")
	}
}
