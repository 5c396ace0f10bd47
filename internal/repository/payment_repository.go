package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/olexmazur/online-cinema/internal/model"
)

// PaymentRepo records provider-confirmed payments.  The critical entry
// point is CreateForSession, called from the webhook handler: it must be
// idempotent because the provider delivers events at least once.  Replays
// are absorbed by two guards inside one transaction: the order must still
// be PENDING, and payments.external_payment_id is unique.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// ErrAlreadyProcessed signals a webhook replay: the session was settled
// by an earlier delivery.  Handlers treat it as success.
var ErrAlreadyProcessed = errors.New("payment already processed")

// PaymentDetail is the history projection for GET /payments.
type PaymentDetail struct {
    ID                uint64    `json:"id"`
    UserID            uint64    `json:"user_id"`
    OrderID           uint64    `json:"order_id"`
    Status            string    `json:"status"`
    AmountCents       int64     `json:"amount_cents"`
    ExternalPaymentID *string   `json:"external_payment_id,omitempty"`
    CreatedAt         time.Time `json:"created_at"`
}

// PaymentFilter narrows ListAll.  Nil fields mean no constraint.
type PaymentFilter struct {
    UserID *uint64
    Status *string
    Offset int
    Limit  int
}

// CreateForSession settles the order tied to a checkout session: in one
// transaction it creates the payment with its per-item snapshot, marks
// the order PAID and grants ownership rows in purchases.
//
// Errors: ErrNotFound (no order for this session), ErrAlreadyProcessed
// (order already PAID or the session id was recorded by a concurrent
// delivery).
func (r *PaymentRepo) CreateForSession(ctx context.Context, sessionID string) (*PaymentDetail, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    defer func() { _ = tx.Rollback() }()

    var (
        orderID uint64
        userID  uint64
        status  string
        total   int64
    )
    err = tx.QueryRowContext(ctx,
        "SELECT id, user_id, status, total_cents FROM orders WHERE external_session_id=? FOR UPDATE",
        sessionID).Scan(&orderID, &userID, &status, &total)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrNotFound
        }
        return nil, err
    }
    if status != model.OrderPending {
        return nil, ErrAlreadyProcessed
    }

    res, err := tx.ExecContext(ctx,
        "INSERT INTO payments (user_id, order_id, status, amount_cents, external_payment_id) VALUES (?,?,?,?,?)",
        userID, orderID, model.PaymentSuccessful, total, sessionID)
    if err != nil {
        // Unique external_payment_id: a concurrent delivery won the race.
        if isDuplicateKey(err) {
            return nil, ErrAlreadyProcessed
        }
        return nil, err
    }
    paymentID, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }

    // Snapshot every order item at its order-time price.
    if _, err := tx.ExecContext(ctx,
        `INSERT INTO payment_items (payment_id, order_item_id, price_at_payment_cents)
         SELECT ?, id, price_at_order_cents FROM order_items WHERE order_id = ?`,
        paymentID, orderID); err != nil {
        return nil, err
    }

    if _, err := tx.ExecContext(ctx,
        "UPDATE orders SET status=? WHERE id=?", model.OrderPaid, orderID); err != nil {
        return nil, err
    }

    // Ownership rows gate future cart adds and orders.  INSERT IGNORE in
    // case the movie was granted through some earlier order.
    if _, err := tx.ExecContext(ctx,
        `INSERT IGNORE INTO purchases (user_id, movie_id)
         SELECT ?, movie_id FROM order_items WHERE order_id = ?`,
        userID, orderID); err != nil {
        return nil, err
    }

    var created time.Time
    if err := tx.QueryRowContext(ctx,
        "SELECT created_at FROM payments WHERE id=?", paymentID).Scan(&created); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }

    sid := sessionID
    return &PaymentDetail{
        ID:                uint64(paymentID),
        UserID:            userID,
        OrderID:           orderID,
        Status:            model.PaymentSuccessful,
        AmountCents:       total,
        ExternalPaymentID: &sid,
        CreatedAt:         created,
    }, nil
}

// ListByUser returns the user's payment history, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64, offset, limit int) ([]PaymentDetail, error) {
    uid := userID
    return r.list(ctx, PaymentFilter{UserID: &uid, Offset: offset, Limit: limit})
}

// ListAll returns payments across all users (admin view).
func (r *PaymentRepo) ListAll(ctx context.Context, f PaymentFilter) ([]PaymentDetail, error) {
    return r.list(ctx, f)
}

func (r *PaymentRepo) list(ctx context.Context, f PaymentFilter) ([]PaymentDetail, error) {
    q := "SELECT id, user_id, order_id, status, amount_cents, external_payment_id, created_at FROM payments"
    var (
        where []string
        args  []interface{}
    )
    if f.UserID != nil {
        where = append(where, "user_id = ?")
        args = append(args, *f.UserID)
    }
    if f.Status != nil {
        where = append(where, "status = ?")
        args = append(args, *f.Status)
    }
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    q += " ORDER BY id DESC"
    limit := f.Limit
    if limit <= 0 || limit > 100 {
        limit = 20
    }
    q += " LIMIT ? OFFSET ?"
    args = append(args, limit, f.Offset)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []PaymentDetail{}
    for rows.Next() {
        var (
            p   PaymentDetail
            ext sql.NullString
        )
        if err := rows.Scan(&p.ID, &p.UserID, &p.OrderID, &p.Status, &p.AmountCents, &ext, &p.CreatedAt); err != nil {
            return nil, err
        }
        if ext.Valid {
            v := ext.String
            p.ExternalPaymentID = &v
        }
        out = append(out, p)
    }
    return out, rows.Err()
}
