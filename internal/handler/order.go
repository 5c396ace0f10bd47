package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/olexmazur/online-cinema/internal/middleware"
    "github.com/olexmazur/online-cinema/internal/model"
    "github.com/olexmazur/online-cinema/internal/repository"
)

// OrderHandler turns carts into orders and lets users manage them.
type OrderHandler struct {
    Orders *repository.OrderRepo
}

func NewOrderHandler(r *repository.OrderRepo) *OrderHandler {
    return &OrderHandler{Orders: r}
}

// Place creates a PENDING order from the cart.  Movies already pending
// in another order or already purchased are skipped and reported in the
// response so the client can tell the user what was dropped.
func (h *OrderHandler) Place(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    order, err := h.Orders.Place(ctx, middleware.UserID(c))
    if err != nil {
        switch err {
        case repository.ErrNotFound, repository.ErrCartEmpty:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
        case repository.ErrNothingToOrder:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "all cart movies are already pending or purchased"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "order failed"})
    }
    return c.JSON(http.StatusCreated, order)
}

// List returns the caller's orders; admins may inspect any user's
// history and filter by status and date range.
func (h *OrderHandler) List(c echo.Context) error {
    var f repository.OrderFilter

    uid := middleware.UserID(c)
    if middleware.Group(c) == model.GroupAdmin {
        if v := c.QueryParam("user_id"); v != "" {
            id, err := strconv.ParseUint(v, 10, 64)
            if err != nil {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
            }
            f.UserID = &id
        }
    } else {
        f.UserID = &uid
    }
    if v := strings.ToUpper(c.QueryParam("status")); v != "" {
        if v != model.OrderPending && v != model.OrderPaid && v != model.OrderCanceled {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
        }
        f.Status = &v
    }
    if v := c.QueryParam("date_from"); v != "" {
        t, err := time.Parse("2006-01-02", v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_from must be YYYY-MM-DD"})
        }
        f.DateFrom = &t
    }
    if v := c.QueryParam("date_to"); v != "" {
        t, err := time.Parse("2006-01-02", v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_to must be YYYY-MM-DD"})
        }
        // Inclusive end of day.
        t = t.Add(24*time.Hour - time.Nanosecond)
        f.DateTo = &t
    }
    page, _ := strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
    if perPage < 1 || perPage > 100 {
        perPage = 20
    }
    f.Offset = (page - 1) * perPage
    f.Limit = perPage

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    orders, err := h.Orders.List(ctx, f)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"orders": orders, "page": page, "per_page": perPage})
}

// Cancel voids a PENDING order.  Paid orders go through a refund flow
// instead and cannot be canceled here.
func (h *OrderHandler) Cancel(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Orders.Cancel(ctx, id, middleware.UserID(c)); err != nil {
        switch err {
        case repository.ErrNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        case repository.ErrConflict:
            return c.JSON(http.StatusConflict, echo.Map{"error": "order already canceled"})
        case repository.ErrOrderNotPending:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "paid orders require a refund"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
