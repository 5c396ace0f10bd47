package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health responds with a tiny JSON document so load balancers and the
// compose healthcheck can verify the API is up.
func Health(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
