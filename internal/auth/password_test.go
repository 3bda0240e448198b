package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal the password")
	}

	ok, err := CheckPassword(hash, "s3cret")
	if err != nil || !ok {
		t.Errorf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = CheckPassword(hash, "wrong")
	if err != nil || ok {
		t.Errorf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}
}

func TestCheckPasswordCorruptHash(t *testing.T) {
	if _, err := CheckPassword("not-a-bcrypt-hash", "x"); err == nil {
		t.Error("expected error for corrupt hash")
	}
}

func TestHashPasswordDefaultCost(t *testing.T) {
	hash, err := HashPassword("x", 0)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("expected default cost %d, got %d", bcrypt.DefaultCost, cost)
	}
}
