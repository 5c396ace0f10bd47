package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/olexmazur/online-cinema/internal/model"
)

// OrderRepo converts carts into orders and manages the order lifecycle.
// Order placement is the one multi-table write with real consistency
// requirements: the order, its items and the cart cleanup all happen in a
// single transaction, and movies the user is already buying elsewhere
// (another PENDING order) or already owns are excluded up front.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// ErrCartEmpty signals placing an order with an empty cart.
var ErrCartEmpty = errors.New("cart is empty")

// ErrNothingToOrder signals that every cart item was excluded (pending
// elsewhere or already purchased), so no order was created.
var ErrNothingToOrder = errors.New("no orderable items in cart")

// ErrOrderNotPending signals a state change that requires a PENDING
// order, e.g. cancelling a PAID one.
var ErrOrderNotPending = errors.New("order is not pending")

// PlacedOrder is returned by Place: the stored order plus the movie
// titles it contains and the cart movie IDs that were skipped.
type PlacedOrder struct {
    ID         uint64    `json:"id"`
    Status     string    `json:"status"`
    TotalCents int64     `json:"total_cents"`
    Movies     []string  `json:"movies"`
    SkippedIDs []uint64  `json:"skipped_movie_ids,omitempty"`
    CreatedAt  time.Time `json:"created_at"`
}

// OrderSummary is the list projection for GET /orders.
type OrderSummary struct {
    ID         uint64    `json:"id"`
    UserID     uint64    `json:"user_id"`
    Status     string    `json:"status"`
    TotalCents int64     `json:"total_cents"`
    Movies     []string  `json:"movies"`
    CreatedAt  time.Time `json:"created_at"`
}

// OrderFilter narrows List.  A nil field means "no constraint".
type OrderFilter struct {
    UserID   *uint64
    Status   *string
    DateFrom *time.Time
    DateTo   *time.Time
    Offset   int
    Limit    int
}

// Place creates an order from the user's cart.
//
// Movies that already sit in another PENDING order of the same user, or
// that the user has purchased before, are skipped and reported back via
// SkippedIDs; the remaining ones become order items priced at this
// moment.  The cart is cleared in the same transaction.
//
// Errors: ErrNotFound (no cart), ErrCartEmpty, ErrNothingToOrder.
func (r *OrderRepo) Place(ctx context.Context, userID uint64) (*PlacedOrder, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    defer func() { _ = tx.Rollback() }()

    var cartID uint64
    err = tx.QueryRowContext(ctx,
        "SELECT id FROM carts WHERE user_id=? LIMIT 1", userID).Scan(&cartID)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrNotFound
        }
        return nil, err
    }

    type cartLine struct {
        movieID uint64
        name    string
        price   int64
    }
    rows, err := tx.QueryContext(ctx,
        `SELECT ci.movie_id, m.name, m.price_cents
         FROM cart_items ci
         JOIN movies m ON m.id = ci.movie_id
         WHERE ci.cart_id = ?
         ORDER BY ci.added_at`, cartID)
    if err != nil {
        return nil, err
    }
    var lines []cartLine
    for rows.Next() {
        var l cartLine
        if err := rows.Scan(&l.movieID, &l.name, &l.price); err != nil {
            rows.Close()
            return nil, err
        }
        lines = append(lines, l)
    }
    rows.Close()
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(lines) == 0 {
        return nil, ErrCartEmpty
    }

    movieIDs := make([]uint64, 0, len(lines))
    for _, l := range lines {
        movieIDs = append(movieIDs, l.movieID)
    }
    excluded, err := r.excludedMovieIDs(ctx, tx, userID, movieIDs)
    if err != nil {
        return nil, err
    }

    var (
        keep    []cartLine
        skipped []uint64
        total   int64
    )
    for _, l := range lines {
        if excluded[l.movieID] {
            skipped = append(skipped, l.movieID)
            continue
        }
        keep = append(keep, l)
        total += l.price
    }
    if len(keep) == 0 {
        return nil, ErrNothingToOrder
    }

    res, err := tx.ExecContext(ctx,
        "INSERT INTO orders (user_id, status, total_cents) VALUES (?,?,?)",
        userID, model.OrderPending, total)
    if err != nil {
        return nil, err
    }
    orderID, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }

    // Bulk insert order items in one statement.
    query := "INSERT INTO order_items (order_id, movie_id, price_at_order_cents) VALUES "
    args := make([]interface{}, 0, len(keep)*3)
    for i, l := range keep {
        if i > 0 {
            query += ","
        }
        query += "(?,?,?)"
        args = append(args, orderID, l.movieID, l.price)
    }
    if _, err := tx.ExecContext(ctx, query, args...); err != nil {
        return nil, err
    }

    if _, err := tx.ExecContext(ctx,
        "DELETE FROM cart_items WHERE cart_id=?", cartID); err != nil {
        return nil, err
    }

    var created time.Time
    if err := tx.QueryRowContext(ctx,
        "SELECT created_at FROM orders WHERE id=?", orderID).Scan(&created); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }

    titles := make([]string, 0, len(keep))
    for _, l := range keep {
        titles = append(titles, l.name)
    }
    return &PlacedOrder{
        ID:         uint64(orderID),
        Status:     model.OrderPending,
        TotalCents: total,
        Movies:     titles,
        SkippedIDs: skipped,
        CreatedAt:  created,
    }, nil
}

// excludedMovieIDs returns the cart movie IDs the user may not order:
// those in their other PENDING orders and those already purchased.
func (r *OrderRepo) excludedMovieIDs(ctx context.Context, tx *sql.Tx, userID uint64, movieIDs []uint64) (map[uint64]bool, error) {
    ids := make([]interface{}, 0, len(movieIDs))
    placeholders := make([]string, 0, len(movieIDs))
    for _, id := range movieIDs {
        ids = append(ids, id)
        placeholders = append(placeholders, "?")
    }
    in := strings.Join(placeholders, ",")
    excluded := make(map[uint64]bool)

    pendingQ := `SELECT oi.movie_id
                 FROM order_items oi
                 JOIN orders o ON o.id = oi.order_id
                 WHERE o.user_id = ? AND o.status = ? AND oi.movie_id IN (` + in + `)`
    args := append([]interface{}{userID, model.OrderPending}, ids...)
    rows, err := tx.QueryContext(ctx, pendingQ, args...)
    if err != nil {
        return nil, err
    }
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            rows.Close()
            return nil, err
        }
        excluded[id] = true
    }
    rows.Close()
    if err := rows.Err(); err != nil {
        return nil, err
    }

    purchasedQ := `SELECT movie_id FROM purchases WHERE user_id = ? AND movie_id IN (` + in + `)`
    args = append([]interface{}{userID}, ids...)
    rows, err = tx.QueryContext(ctx, purchasedQ, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        excluded[id] = true
    }
    return excluded, rows.Err()
}

// List returns orders matching the filter, newest first, with the movie
// titles of each order resolved via GROUP_CONCAT.
func (r *OrderRepo) List(ctx context.Context, f OrderFilter) ([]OrderSummary, error) {
    q := `SELECT o.id, o.user_id, o.status, o.total_cents, o.created_at,
                 COALESCE(GROUP_CONCAT(m.name ORDER BY oi.id SEPARATOR '||'), '')
          FROM orders o
          LEFT JOIN order_items oi ON oi.order_id = o.id
          LEFT JOIN movies m ON m.id = oi.movie_id`
    var (
        where []string
        args  []interface{}
    )
    if f.UserID != nil {
        where = append(where, "o.user_id = ?")
        args = append(args, *f.UserID)
    }
    if f.Status != nil {
        where = append(where, "o.status = ?")
        args = append(args, *f.Status)
    }
    if f.DateFrom != nil {
        where = append(where, "o.created_at >= ?")
        args = append(args, *f.DateFrom)
    }
    if f.DateTo != nil {
        where = append(where, "o.created_at <= ?")
        args = append(args, *f.DateTo)
    }
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    q += " GROUP BY o.id ORDER BY o.id DESC"
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
    out := []OrderSummary{}
    for rows.Next() {
        var (
            s      OrderSummary
            titles string
        )
        if err := rows.Scan(&s.ID, &s.UserID, &s.Status, &s.TotalCents, &s.CreatedAt, &titles); err != nil {
            return nil, err
        }
        if titles == "" {
            s.Movies = []string{}
        } else {
            s.Movies = strings.Split(titles, "||")
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// Cancel moves a user's PENDING order to CANCELED.
//
// Errors: ErrNotFound (no such order for this user), ErrConflict (already
// canceled), ErrOrderNotPending (paid; refunds are not supported here).
func (r *OrderRepo) Cancel(ctx context.Context, orderID, userID uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer func() { _ = tx.Rollback() }()

    var status string
    err = tx.QueryRowContext(ctx,
        "SELECT status FROM orders WHERE id=? AND user_id=? FOR UPDATE",
        orderID, userID).Scan(&status)
    if err != nil {
        if err == sql.ErrNoRows {
            return ErrNotFound
        }
        return err
    }
    switch status {
    case model.OrderCanceled:
        return ErrConflict
    case model.OrderPaid:
        return ErrOrderNotPending
    }
    if _, err := tx.ExecContext(ctx,
        "UPDATE orders SET status=? WHERE id=?", model.OrderCanceled, orderID); err != nil {
        return err
    }
    return tx.Commit()
}

// GetForUser loads one order owned by the user, with item titles.  Used
// by payment creation to price the checkout session.
func (r *OrderRepo) GetForUser(ctx context.Context, orderID, userID uint64) (*OrderSummary, error) {
    const q = `SELECT o.id, o.user_id, o.status, o.total_cents, o.created_at,
                      COALESCE(GROUP_CONCAT(m.name ORDER BY oi.id SEPARATOR '||'), '')
               FROM orders o
               LEFT JOIN order_items oi ON oi.order_id = o.id
               LEFT JOIN movies m ON m.id = oi.movie_id
               WHERE o.id = ? AND o.user_id = ?
               GROUP BY o.id`
    var (
        s      OrderSummary
        titles string
    )
    err := r.db.QueryRowContext(ctx, q, orderID, userID).Scan(
        &s.ID, &s.UserID, &s.Status, &s.TotalCents, &s.CreatedAt, &titles)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrNotFound
        }
        return nil, err
    }
    if titles == "" {
        s.Movies = []string{}
    } else {
        s.Movies = strings.Split(titles, "||")
    }
    return &s, nil
}

// AttachSession stores the provider checkout session id on a PENDING
// order so the webhook can find it later.
func (r *OrderRepo) AttachSession(ctx context.Context, orderID uint64, sessionID string) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE orders SET external_session_id=? WHERE id=? AND status=?",
        sessionID, orderID, model.OrderPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrOrderNotPending
    }
    return nil
}

// CancelBySession cancels the PENDING order tied to a checkout session.
// Used by the webhook on expired or canceled payment events; unknown
// sessions and non-pending orders are no-ops so replays stay harmless.
func (r *OrderRepo) CancelBySession(ctx context.Context, sessionID string) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        "UPDATE orders SET status=? WHERE external_session_id=? AND status=?",
        model.OrderCanceled, sessionID, model.OrderPending)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ExpireStalePending cancels PENDING orders older than maxAge.  The
// scheduler runs this so abandoned checkouts do not hold movies hostage
// (the at-most-one-pending-order-per-movie rule would otherwise block the
// user forever).
func (r *OrderRepo) ExpireStalePending(ctx context.Context, maxAge time.Duration) (int64, error) {
    cutoff := time.Now().UTC().Add(-maxAge)
    res, err := r.db.ExecContext(ctx,
        "UPDATE orders SET status=? WHERE status=? AND created_at < ?",
        model.OrderCanceled, model.OrderPending, cutoff)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
