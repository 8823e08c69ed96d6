package utils

import "testing"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2-but-longer", bcryptTestCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2-but-longer" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !VerifyPassword(hash, "hunter2-but-longer") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "hunter3-but-longer") {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordSalts(t *testing.T) {
	h1, err := HashPassword("same-input", bcryptTestCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same-input", bcryptTestCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same password came out identical")
	}
}

// bcryptTestCost keeps the tests fast; production cost comes from config.
const bcryptTestCost = 4
