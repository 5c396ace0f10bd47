package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// CartRepo manages the per-user shopping cart.  Every user has at most
// one cart row; it is created lazily by the first AddItem and stays
// around (empty) after checkout.  A movie may appear in a cart once and
// never after it has been purchased.
type CartRepo struct {
    db *sql.DB
}

// NewCartRepo returns a new CartRepo bound to the given database.
func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// ErrAlreadyInCart signals a second add of the same movie.
var ErrAlreadyInCart = errors.New("movie already in cart")

// ErrAlreadyPurchased signals an add of a movie the user already owns.
var ErrAlreadyPurchased = errors.New("movie already purchased")

// ErrNotInCart signals removing a movie that the cart does not contain.
var ErrNotInCart = errors.New("movie not in cart")

// CartItemDetail is a cart line joined with its movie for display.
type CartItemDetail struct {
    MovieID    uint64    `json:"movie_id"`
    Name       string    `json:"name"`
    Year       int       `json:"year"`
    PriceCents int64     `json:"price_cents"`
    AddedAt    time.Time `json:"added_at"`
}

// CartDetail is the full cart view: its items plus the running total.
type CartDetail struct {
    ID         uint64           `json:"id"`
    UserID     uint64           `json:"user_id"`
    Items      []CartItemDetail `json:"items"`
    TotalCents int64            `json:"total_cents"`
}

// GetByUser loads a user's cart with items.  ErrNotFound when the user
// has no cart yet.
func (r *CartRepo) GetByUser(ctx context.Context, userID uint64) (*CartDetail, error) {
    var det CartDetail
    err := r.db.QueryRowContext(ctx,
        "SELECT id, user_id FROM carts WHERE user_id=? LIMIT 1", userID).
        Scan(&det.ID, &det.UserID)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrNotFound
        }
        return nil, err
    }

    rows, err := r.db.QueryContext(ctx,
        `SELECT ci.movie_id, m.name, m.year, m.price_cents, ci.added_at
         FROM cart_items ci
         JOIN movies m ON m.id = ci.movie_id
         WHERE ci.cart_id = ?
         ORDER BY ci.added_at`, det.ID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    det.Items = []CartItemDetail{}
    for rows.Next() {
        var it CartItemDetail
        if err := rows.Scan(&it.MovieID, &it.Name, &it.Year, &it.PriceCents, &it.AddedAt); err != nil {
            return nil, err
        }
        det.TotalCents += it.PriceCents
        det.Items = append(det.Items, it)
    }
    return &det, rows.Err()
}

// AddItem puts a movie into the user's cart, creating the cart when the
// user has none.  Returns ErrAlreadyPurchased when the user owns the
// movie, ErrAlreadyInCart on a duplicate add.
func (r *CartRepo) AddItem(ctx context.Context, userID, movieID uint64) error {
    owned, err := r.HasPurchased(ctx, userID, movieID)
    if err != nil {
        return err
    }
    if owned {
        return ErrAlreadyPurchased
    }

    cartID, err := r.getOrCreate(ctx, userID)
    if err != nil {
        return err
    }
    _, err = r.db.ExecContext(ctx,
        "INSERT INTO cart_items (cart_id, movie_id) VALUES (?,?)", cartID, movieID)
    if isDuplicateKey(err) {
        return ErrAlreadyInCart
    }
    return err
}

// RemoveItem deletes one movie from the cart.  ErrNotFound when the user
// has no cart, ErrNotInCart when the movie is not among the items.
func (r *CartRepo) RemoveItem(ctx context.Context, userID, movieID uint64) error {
    cartID, err := r.cartID(ctx, userID)
    if err != nil {
        return err
    }
    res, err := r.db.ExecContext(ctx,
        "DELETE FROM cart_items WHERE cart_id=? AND movie_id=?", cartID, movieID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotInCart
    }
    return nil
}

// Clear removes all items from the user's cart.
func (r *CartRepo) Clear(ctx context.Context, userID uint64) error {
    cartID, err := r.cartID(ctx, userID)
    if err != nil {
        return err
    }
    _, err = r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id=?", cartID)
    return err
}

// HasPurchased reports whether the user already owns the movie.
func (r *CartRepo) HasPurchased(ctx context.Context, userID, movieID uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx,
        "SELECT 1 FROM purchases WHERE user_id=? AND movie_id=? LIMIT 1",
        userID, movieID).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

func (r *CartRepo) cartID(ctx context.Context, userID uint64) (uint64, error) {
    var id uint64
    err := r.db.QueryRowContext(ctx,
        "SELECT id FROM carts WHERE user_id=? LIMIT 1", userID).Scan(&id)
    if err == sql.ErrNoRows {
        return 0, ErrNotFound
    }
    return id, err
}

func (r *CartRepo) getOrCreate(ctx context.Context, userID uint64) (uint64, error) {
    id, err := r.cartID(ctx, userID)
    if err == nil {
        return id, nil
    }
    if err != ErrNotFound {
        return 0, err
    }
    res, err := r.db.ExecContext(ctx, "INSERT INTO carts (user_id) VALUES (?)", userID)
    if err != nil {
        // Concurrent first-add may have created the cart already.
        if isDuplicateKey(err) {
            return r.cartID(ctx, userID)
        }
        return 0, err
    }
    n, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(n), nil
}
