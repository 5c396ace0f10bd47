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
    "github.com/olexmazur/online-cinema/internal/payments"
    "github.com/olexmazur/online-cinema/internal/repository"
)

// PaymentHandler opens checkout sessions and serves payment history.
// The actual settlement happens in the webhook handler once the
// provider confirms the charge.
type PaymentHandler struct {
    Orders   *repository.OrderRepo
    Payments *repository.PaymentRepo
    Gateway  payments.Gateway
}

func NewPaymentHandler(o *repository.OrderRepo, p *repository.PaymentRepo, g payments.Gateway) *PaymentHandler {
    return &PaymentHandler{Orders: o, Payments: p, Gateway: g}
}

// Checkout creates a provider checkout session for a PENDING order and
// stores the session id on it so the later webhook can find the order.
func (h *PaymentHandler) Checkout(c echo.Context) error {
    orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()

    order, err := h.Orders.GetForUser(ctx, orderID, middleware.UserID(c))
    if err != nil {
        if err == repository.ErrNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if order.Status != model.OrderPending {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "order is not pending"})
    }

    desc := truncate("Movies: "+strings.Join(order.Movies, ", "), 250)
    session, err := h.Gateway.CreateCheckout(ctx, order.ID, desc, order.TotalCents)
    if err != nil {
        c.Logger().Errorf("checkout: provider error for order %d: %v", order.ID, err)
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
    }
    if err := h.Orders.AttachSession(ctx, order.ID, session.ID); err != nil {
        if err == repository.ErrOrderNotPending {
            return c.JSON(http.StatusConflict, echo.Map{"error": "order is no longer pending"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save session failed"})
    }
    return c.JSON(http.StatusCreated, session)
}

// List returns the caller's payment history.
func (h *PaymentHandler) List(c echo.Context) error {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
    if perPage < 1 || perPage > 100 {
        perPage = 20
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    list, err := h.Payments.ListByUser(ctx, middleware.UserID(c), (page-1)*perPage, perPage)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"payments": list, "page": page, "per_page": perPage})
}

// ListAll is the admin view across users, filterable by user and status.
func (h *PaymentHandler) ListAll(c echo.Context) error {
    var f repository.PaymentFilter
    if v := c.QueryParam("user_id"); v != "" {
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
        }
        f.UserID = &id
    }
    if v := strings.ToUpper(c.QueryParam("status")); v != "" {
        if v != model.PaymentSuccessful && v != model.PaymentCancelled && v != model.PaymentRefunded {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
        }
        f.Status = &v
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

    list, err := h.Payments.ListAll(ctx, f)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"payments": list, "page": page, "per_page": perPage})
}
