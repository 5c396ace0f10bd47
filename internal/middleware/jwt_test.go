package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/olexmazur/online-cinema/internal/utils"
)

func runProtected(t *testing.T, authHeader string) (*httptest.ResponseRecorder, uint64, string) {
    t.Helper()
    e := echo.New()
    var gotID uint64
    var gotGroup string
    e.GET("/protected", func(c echo.Context) error {
        gotID = UserID(c)
        gotGroup = Group(c)
        return c.NoContent(http.StatusOK)
    }, JWTAuth("test-secret"))

    req := httptest.NewRequest(http.MethodGet, "/protected", nil)
    if authHeader != "" {
        req.Header.Set("Authorization", authHeader)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec, gotID, gotGroup
}

func TestJWTAuthInjectsIdentity(t *testing.T) {
    at, err := utils.NewAccessToken("test-secret", 42, "ADMIN", 5)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }

    rec, id, group := runProtected(t, "Bearer "+at.Token)
    if rec.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rec.Code)
    }
    if id != 42 || group != "ADMIN" {
        t.Fatalf("identity not injected: id=%d group=%q", id, group)
    }
}

func TestJWTAuthMissingHeader(t *testing.T) {
    rec, _, _ := runProtected(t, "")
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401, got %d", rec.Code)
    }
}

func TestJWTAuthWrongSecret(t *testing.T) {
    at, err := utils.NewAccessToken("other-secret", 42, "USER", 5)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    rec, _, _ := runProtected(t, "Bearer "+at.Token)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401, got %d", rec.Code)
    }
}

func runOptional(t *testing.T, authHeader string) (*httptest.ResponseRecorder, uint64) {
    t.Helper()
    e := echo.New()
    var gotID uint64
    e.POST("/open", func(c echo.Context) error {
        gotID = UserID(c)
        return c.NoContent(http.StatusOK)
    }, OptionalJWTAuth("test-secret"))

    req := httptest.NewRequest(http.MethodPost, "/open", nil)
    if authHeader != "" {
        req.Header.Set("Authorization", authHeader)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec, gotID
}

func TestOptionalJWTAuthAnonymousPassesThrough(t *testing.T) {
    rec, id := runOptional(t, "")
    if rec.Code != http.StatusOK {
        t.Fatalf("expected 200 without header, got %d", rec.Code)
    }
    if id != 0 {
        t.Fatalf("anonymous request carried identity %d", id)
    }
}

func TestOptionalJWTAuthInjectsIdentity(t *testing.T) {
    at, err := utils.NewAccessToken("test-secret", 42, "USER", 5)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    rec, id := runOptional(t, "Bearer "+at.Token)
    if rec.Code != http.StatusOK || id != 42 {
        t.Fatalf("expected identity 42 with 200, got id=%d status=%d", id, rec.Code)
    }
}

func TestOptionalJWTAuthRejectsBadToken(t *testing.T) {
    at, err := utils.NewAccessToken("other-secret", 42, "USER", 5)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    rec, _ := runOptional(t, "Bearer "+at.Token)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401 for a presented bad token, got %d", rec.Code)
    }
}

func TestRequireGroup(t *testing.T) {
    e := echo.New()
    e.GET("/mod", func(c echo.Context) error {
        return c.NoContent(http.StatusOK)
    }, func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            c.Set("group", "USER")
            return next(c)
        }
    }, RequireGroup("MODERATOR", "ADMIN"))

    req := httptest.NewRequest(http.MethodGet, "/mod", nil)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    if rec.Code != http.StatusForbidden {
        t.Fatalf("expected 403 for USER on moderator route, got %d", rec.Code)
    }
}
