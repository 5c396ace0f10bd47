package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/olexmazur/online-cinema/internal/middleware"
    "github.com/olexmazur/online-cinema/internal/repository"
)

// CartHandler serves the user's shopping cart.
type CartHandler struct {
    Carts *repository.CartRepo
}

func NewCartHandler(r *repository.CartRepo) *CartHandler {
    return &CartHandler{Carts: r}
}

// Get returns the cart with items and total.  A user who never added
// anything simply sees an empty cart, not an error.
func (h *CartHandler) Get(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid := middleware.UserID(c)
    cart, err := h.Carts.GetByUser(ctx, uid)
    if err != nil {
        if err == repository.ErrNotFound {
            return c.JSON(http.StatusOK, repository.CartDetail{UserID: uid, Items: []repository.CartItemDetail{}})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, cart)
}

// GetForUser lets an admin inspect any user's cart.
func (h *CartHandler) GetForUser(c echo.Context) error {
    uid, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    cart, err := h.Carts.GetByUser(ctx, uid)
    if err != nil {
        if err == repository.ErrNotFound {
            return c.JSON(http.StatusOK, repository.CartDetail{UserID: uid, Items: []repository.CartItemDetail{}})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, cart)
}

// AddItem puts a movie into the cart.
func (h *CartHandler) AddItem(c echo.Context) error {
    movieID, err := strconv.ParseUint(c.Param("movie_id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Carts.AddItem(ctx, middleware.UserID(c), movieID); err != nil {
        switch err {
        case repository.ErrNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        case repository.ErrAlreadyInCart:
            return c.JSON(http.StatusConflict, echo.Map{"error": "movie already in cart"})
        case repository.ErrAlreadyPurchased:
            return c.JSON(http.StatusConflict, echo.Map{"error": "movie already purchased"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// RemoveItem takes a movie out of the cart.
func (h *CartHandler) RemoveItem(c echo.Context) error {
    movieID, err := strconv.ParseUint(c.Param("movie_id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Carts.RemoveItem(ctx, middleware.UserID(c), movieID); err != nil {
        if err == repository.ErrNotInCart {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not in cart"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Clear empties the cart.
func (h *CartHandler) Clear(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Carts.Clear(ctx, middleware.UserID(c)); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
