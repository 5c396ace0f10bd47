package utils

import "testing"

func TestPasswordHashRoundTrip(t *testing.T) {
    hash, err := HashPassword("s3cret-pass", 4)
    if err != nil {
        t.Fatalf("HashPassword: %v", err)
    }
    if hash == "s3cret-pass" {
        t.Fatal("password stored in plain text")
    }
    if !VerifyPassword(hash, "s3cret-pass") {
        t.Fatal("correct password rejected")
    }
    if VerifyPassword(hash, "wrong-pass") {
        t.Fatal("wrong password accepted")
    }
}

func TestPasswordHashClampsBadCost(t *testing.T) {
    // A nonsense cost must not error out; it falls back to the default.
    hash, err := HashPassword("s3cret-pass", -7)
    if err != nil {
        t.Fatalf("HashPassword with bad cost: %v", err)
    }
    if !VerifyPassword(hash, "s3cret-pass") {
        t.Fatal("hash with defaulted cost does not verify")
    }
}
