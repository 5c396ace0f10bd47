package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenCarriesClaims(t *testing.T) {
    at, err := NewAccessToken("secret", 42, "MODERATOR", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    if !at.Exp.After(time.Now()) {
        t.Fatal("expiry not in the future")
    }

    tok, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
        return []byte("secret"), nil
    })
    if err != nil || !tok.Valid {
        t.Fatalf("parse: %v", err)
    }
    claims := tok.Claims.(jwt.MapClaims)
    if claims["sub"].(float64) != 42 {
        t.Fatalf("unexpected sub %v", claims["sub"])
    }
    if claims["group"].(string) != "MODERATOR" {
        t.Fatalf("unexpected group %v", claims["group"])
    }
}

func TestAccessTokenWrongSecret(t *testing.T) {
    at, err := NewAccessToken("secret", 42, "USER", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    if _, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
        return []byte("other"), nil
    }); err == nil {
        t.Fatal("expected signature verification to fail")
    }
}

func TestOpaqueTokensAreUnique(t *testing.T) {
    a, err := NewRefreshToken(7)
    if err != nil {
        t.Fatalf("NewRefreshToken: %v", err)
    }
    b, err := NewRefreshToken(7)
    if err != nil {
        t.Fatalf("NewRefreshToken: %v", err)
    }
    if a.Raw == b.Raw {
        t.Fatal("two tokens share the same raw value")
    }
}

func TestHashTokenDeterministic(t *testing.T) {
    if HashToken("abc") != HashToken("abc") {
        t.Fatal("hash not deterministic")
    }
    if HashToken("abc") == HashToken("abd") {
        t.Fatal("distinct tokens collide")
    }
    if len(HashToken("abc")) != 64 {
        t.Fatalf("expected 64 hex chars, got %d", len(HashToken("abc")))
    }
}

func TestOneTimeTokenExpiry(t *testing.T) {
    tok, err := NewOneTimeToken(24)
    if err != nil {
        t.Fatalf("NewOneTimeToken: %v", err)
    }
    until := time.Until(tok.Exp)
    if until < 23*time.Hour || until > 25*time.Hour {
        t.Fatalf("expected ~24h expiry, got %s", until)
    }
}
