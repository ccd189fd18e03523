package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasherHashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "" {
		t.Fatal("Hash() returned empty hash")
	}
	if err := h.Compare(hash, []byte("correct horse battery staple")); err != nil {
		t.Errorf("Compare() with matching password error = %v", err)
	}
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Error("Compare() with wrong password expected error, got nil")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	if got := NewHasher(0).Cost; got != bcrypt.DefaultCost {
		t.Errorf("NewHasher(0).Cost = %d, want %d", got, bcrypt.DefaultCost)
	}
	if got := NewHasher(100).Cost; got != bcrypt.MaxCost {
		t.Errorf("NewHasher(100).Cost = %d, want %d", got, bcrypt.MaxCost)
	}
}
