package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA-256 hashing for opaque tokens
    "encoding/hex"  // hex encoding and decoding functions
    "time"          // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived and sent in the Authorization header when
// calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// OpaqueToken is a random credential handed to the client in raw form.
// Refresh, activation and password reset tokens all use this shape; the
// database only ever stores the SHA-256 hash of Raw.
type OpaqueToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The claims
// carry the user ID as subject, the user group, expiration and issued-at.
func NewAccessToken(secret string, userID uint64, group string, ttlMin int) (AccessToken, error) {
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":   userID,
        "group": group,
        "exp":   exp.Unix(),
        "iat":   time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken returns a long-lived opaque token used to obtain new
// access tokens.  ttlDays controls its validity window.
func NewRefreshToken(ttlDays int) (OpaqueToken, error) {
    return newOpaqueToken(time.Duration(ttlDays) * 24 * time.Hour)
}

// NewOneTimeToken returns an opaque token for account activation or
// password reset flows, valid for the given number of hours.
func NewOneTimeToken(ttlHours int) (OpaqueToken, error) {
    return newOpaqueToken(time.Duration(ttlHours) * time.Hour)
}

func newOpaqueToken(ttl time.Duration) (OpaqueToken, error) {
    // 48 random bytes -> 96 hex characters.
    raw, err := randomHex(48)
    if err != nil {
        return OpaqueToken{}, err
    }
    return OpaqueToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(ttl),
    }, nil
}

// HashToken returns the SHA-256 hash of a raw opaque token as a hex
// string.  Storing only the hash keeps stolen database rows useless for
// session or account takeover.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
