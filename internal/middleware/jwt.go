package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strconv"  // numeric claim conversion
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject and group claims into the request
// context.  The provided secret must match the one used when issuing
// tokens.  Handlers behind this middleware read the authenticated user
// via UserID(c) and Group(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            if !injectIdentity(c, strings.TrimPrefix(auth, "Bearer "), secret) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            return next(c)
        }
    }
}

// OptionalJWTAuth is JWTAuth for routes that serve both anonymous and
// authenticated callers (logout accepts either a refresh token in the
// body or a bearer token).  A missing header passes through anonymously;
// a presented but invalid token is still rejected.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return next(c)
            }
            if !injectIdentity(c, strings.TrimPrefix(auth, "Bearer "), secret) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            return next(c)
        }
    }
}

// injectIdentity parses and validates the token and, on success, stores
// the subject and group in the context.  The parse callback supplies the
// key and rejects any signing method other than HMAC.
func injectIdentity(c echo.Context, raw, secret string) bool {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, echo.ErrUnauthorized
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return false
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return false
    }
    uid, ok := subjectID(claims)
    if !ok {
        return false
    }
    c.Set("user_id", uid)
    if g, ok := claims["group"].(string); ok {
        c.Set("group", g)
    }
    return true
}

// subjectID pulls the numeric user ID out of the "sub" claim.  JSON
// numbers decode as float64; some clients re-issue them as strings.
func subjectID(claims jwt.MapClaims) (uint64, bool) {
    switch v := claims["sub"].(type) {
    case float64:
        return uint64(v), true
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n, true
        }
    }
    return 0, false
}

// UserID returns the authenticated user's ID stored by JWTAuth, or 0
// when the request is unauthenticated.
func UserID(c echo.Context) uint64 {
    if v, ok := c.Get("user_id").(uint64); ok {
        return v
    }
    return 0
}

// Group returns the authenticated user's group, or "" when absent.
func Group(c echo.Context) string {
    if v, ok := c.Get("group").(string); ok {
        return v
    }
    return ""
}
