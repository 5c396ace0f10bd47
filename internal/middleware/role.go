package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireGroup returns a middleware that enforces that the authenticated
// user belongs to one of the given groups.  Group names correspond to the
// values stored in the JWT's "group" claim (USER, MODERATOR, ADMIN).  It
// assumes JWTAuth ran earlier and stored the group in the context; a
// missing or unlisted group yields 403 Forbidden.
func RequireGroup(groups ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(groups))
    for _, g := range groups {
        allowed[g] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[Group(c)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
