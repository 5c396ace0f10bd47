package handler

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"
    stripe "github.com/stripe/stripe-go/v78"

    "github.com/olexmazur/online-cinema/internal/repository"
)

const webhookSecret = "whsec_test"

// signPayload builds a valid Stripe-Signature header for the payload.
func signPayload(payload string, at time.Time) string {
    ts := at.Unix()
    mac := hmac.New(sha256.New, []byte(webhookSecret))
    fmt.Fprintf(mac, "%d.%s", ts, payload)
    return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func sessionEvent(eventType, sessionID string) string {
    return fmt.Sprintf(
        `{"id":"evt_1","object":"event","api_version":%q,"type":%q,"data":{"object":{"id":%q,"object":"checkout.session"}}}`,
        stripe.APIVersion, eventType, sessionID)
}

func testWebhookHandler(t *testing.T) (*WebhookHandler, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    t.Cleanup(func() { db.Close() })
    return NewWebhookHandler(
        repository.NewPaymentRepo(db),
        repository.NewOrderRepo(db),
        repository.NewUserRepo(db),
        webhookSecret,
    ), mock
}

func deliver(t *testing.T, h *WebhookHandler, payload, signature string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(payload))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    req.Header.Set("Stripe-Signature", signature)
    rec := httptest.NewRecorder()
    if err := h.Stripe(e.NewContext(req, rec)); err != nil {
        t.Fatalf("Stripe: %v", err)
    }
    return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
    h, _ := testWebhookHandler(t)

    payload := sessionEvent("checkout.session.completed", "cs_123")
    rec := deliver(t, h, payload, "t=123,v1=deadbeef")
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
    }
}

func TestWebhookRejectsTamperedPayload(t *testing.T) {
    h, _ := testWebhookHandler(t)

    sig := signPayload(sessionEvent("checkout.session.completed", "cs_123"), time.Now())
    tampered := sessionEvent("checkout.session.completed", "cs_456")
    rec := deliver(t, h, tampered, sig)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("expected 400 for tampered payload, got %d", rec.Code)
    }
}

// A replayed completed event finds the order already PAID and is
// acknowledged without side effects.
func TestWebhookCompletedReplayAcknowledged(t *testing.T) {
    h, mock := testWebhookHandler(t)

    mock.ExpectBegin()
    mock.ExpectQuery("FROM orders WHERE external_session_id").WithArgs("cs_123").
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "total_cents"}).
            AddRow(11, 42, "PAID", 2298))
    mock.ExpectRollback()

    payload := sessionEvent("checkout.session.completed", "cs_123")
    rec := deliver(t, h, payload, signPayload(payload, time.Now()))
    if rec.Code != http.StatusOK {
        t.Fatalf("expected 200 for replay, got %d: %s", rec.Code, rec.Body.String())
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("unmet expectations: %v", err)
    }
}

// A completed event for a session we never issued is acknowledged so
// the provider stops retrying.
func TestWebhookCompletedUnknownSession(t *testing.T) {
    h, mock := testWebhookHandler(t)

    mock.ExpectBegin()
    mock.ExpectQuery("FROM orders WHERE external_session_id").WithArgs("cs_ghost").
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "total_cents"}))
    mock.ExpectRollback()

    payload := sessionEvent("checkout.session.completed", "cs_ghost")
    rec := deliver(t, h, payload, signPayload(payload, time.Now()))
    if rec.Code != http.StatusOK {
        t.Fatalf("expected 200 for unknown session, got %d", rec.Code)
    }
}

func TestWebhookExpiredCancelsPendingOrder(t *testing.T) {
    h, mock := testWebhookHandler(t)

    mock.ExpectExec("UPDATE orders SET status").
        WithArgs("CANCELED", "cs_123", "PENDING").
        WillReturnResult(sqlmock.NewResult(0, 1))

    payload := sessionEvent("checkout.session.expired", "cs_123")
    rec := deliver(t, h, payload, signPayload(payload, time.Now()))
    if rec.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rec.Code)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("unmet expectations: %v", err)
    }
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
    h, _ := testWebhookHandler(t)

    payload := sessionEvent("customer.created", "cs_123")
    rec := deliver(t, h, payload, signPayload(payload, time.Now()))
    if rec.Code != http.StatusOK {
        t.Fatalf("expected 200 for unhandled event type, got %d", rec.Code)
    }
}
