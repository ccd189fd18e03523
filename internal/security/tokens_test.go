package security

import (
	"testing"
	"time"
)

func TestIssueAndValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider() error = %v", err)
	}

	token, jti, expiresAt, err := p.IssueAccess("org-1", "teacher@example.com")
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}
	if jti == "" {
		t.Error("IssueAccess() returned empty jti")
	}
	if !expiresAt.After(time.Now()) {
		t.Error("IssueAccess() expiresAt not in the future")
	}

	organizerID, email, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess() error = %v", err)
	}
	if organizerID != "org-1" {
		t.Errorf("organizerID = %q, want %q", organizerID, "org-1")
	}
	if email != "teacher@example.com" {
		t.Errorf("email = %q, want %q", email, "teacher@example.com")
	}
}

func TestValidateAccessRejectsGarbage(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider() error = %v", err)
	}
	if _, _, err := p.ValidateAccess("not.a.jwt"); err == nil {
		t.Error("ValidateAccess() with garbage expected error, got nil")
	}
}

func TestValidateAccessRejectsWrongIssuer(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider() error = %v", err)
	}
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey() error = %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey() error = %v", err)
	}
	other := NewTokenProvider(signer, pub, "other-issuer", "test-audience", 15*time.Minute)

	token, _, _, err := other.IssueAccess("org-1", "teacher@example.com")
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}
	if _, _, err := p.ValidateAccess(token); err == nil {
		t.Error("ValidateAccess() with wrong issuer expected error, got nil")
	}
}
