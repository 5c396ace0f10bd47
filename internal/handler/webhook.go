package handler

import (
    "context"
    "encoding/json"
    "io"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    stripe "github.com/stripe/stripe-go/v78"
    "github.com/stripe/stripe-go/v78/webhook"

    "github.com/olexmazur/online-cinema/internal/queue"
    "github.com/olexmazur/online-cinema/internal/repository"
    queuepub "github.com/olexmazur/online-cinema/internal/service"
)

// Stripe caps webhook payloads at 64KB; anything bigger is not ours.
const maxWebhookBody = 65536

// WebhookHandler receives payment provider events.  Stripe delivers at
// least once and out of order, so every branch here must be idempotent:
// the repository absorbs replays and the handler answers 200 for any
// event that is already settled or unknown, reserving non-2xx for
// signature failures and real server errors (which make Stripe retry).
type WebhookHandler struct {
    Payments *repository.PaymentRepo
    Orders   *repository.OrderRepo
    Users    *repository.UserRepo
    Secret   string
}

func NewWebhookHandler(p *repository.PaymentRepo, o *repository.OrderRepo, u *repository.UserRepo, secret string) *WebhookHandler {
    return &WebhookHandler{Payments: p, Orders: o, Users: u, Secret: secret}
}

// Stripe handles POST /webhooks/stripe.
func (h *WebhookHandler) Stripe(c echo.Context) error {
    payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "read body failed"})
    }

    event, err := webhook.ConstructEvent(payload, c.Request().Header.Get("Stripe-Signature"), h.Secret)
    if err != nil {
        c.Logger().Warnf("webhook: signature verification failed: %v", err)
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
    }

    var session stripe.CheckoutSession
    switch event.Type {
    case "checkout.session.completed":
        if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event"})
        }
        return h.sessionCompleted(c, session.ID)
    case "checkout.session.expired":
        if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event"})
        }
        return h.sessionExpired(c, session.ID)
    }

    // Unhandled event types are acknowledged so Stripe stops retrying.
    c.Logger().Infof("webhook: ignoring event type %s", event.Type)
    return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func (h *WebhookHandler) sessionCompleted(c echo.Context, sessionID string) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    payment, err := h.Payments.CreateForSession(ctx, sessionID)
    if err != nil {
        switch err {
        case repository.ErrAlreadyProcessed:
            return c.JSON(http.StatusOK, echo.Map{"received": true})
        case repository.ErrNotFound:
            // A session we never issued, or the order was purged.  Not
            // retryable, so acknowledge.
            c.Logger().Warnf("webhook: completed session %s matches no order", sessionID)
            return c.JSON(http.StatusOK, echo.Map{"received": true})
        }
        c.Logger().Errorf("webhook: settle session %s failed: %v", sessionID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "settle failed"})
    }

    if u, err := h.Users.GetByID(ctx, payment.UserID); err == nil {
        _ = queuepub.PublishEmail(ctx, queue.EmailEvent{
            Kind:        queue.EmailOrderPaid,
            To:          u.Email,
            OrderID:     payment.OrderID,
            AmountCents: payment.AmountCents,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func (h *WebhookHandler) sessionExpired(c echo.Context, sessionID string) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    canceled, err := h.Orders.CancelBySession(ctx, sessionID)
    if err != nil {
        c.Logger().Errorf("webhook: cancel session %s failed: %v", sessionID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }
    if !canceled {
        c.Logger().Infof("webhook: expired session %s had no pending order", sessionID)
    }
    return c.JSON(http.StatusOK, echo.Map{"received": true})
}
