package handler

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"

    "github.com/olexmazur/online-cinema/internal/repository"
)

func testCartHandler(t *testing.T) (*CartHandler, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    t.Cleanup(func() { db.Close() })
    return NewCartHandler(repository.NewCartRepo(db)), mock
}

// authedContext builds an echo context carrying the identity the JWT
// middleware would have set.
func authedContext(method, path string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
    e := echo.New()
    req := httptest.NewRequest(method, path, nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("user_id", userID)
    c.Set("group", "USER")
    return c, rec
}

func TestGetCartEmptyForNewUser(t *testing.T) {
    h, mock := testCartHandler(t)

    mock.ExpectQuery("SELECT id, user_id FROM carts").WithArgs(uint64(42)).
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))

    c, rec := authedContext(http.MethodGet, "/api/v1/cart", 42)
    if err := h.Get(c); err != nil {
        t.Fatalf("Get: %v", err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rec.Code)
    }
    var cart repository.CartDetail
    if err := json.Unmarshal(rec.Body.Bytes(), &cart); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if len(cart.Items) != 0 || cart.TotalCents != 0 {
        t.Fatalf("expected empty cart, got %+v", cart)
    }
}

func TestAddItemConflictsWhenOwned(t *testing.T) {
    h, mock := testCartHandler(t)

    mock.ExpectQuery("SELECT 1 FROM purchases").WithArgs(uint64(42), uint64(5)).
        WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

    c, rec := authedContext(http.MethodPost, "/api/v1/cart/items/5", 42)
    c.SetParamNames("movie_id")
    c.SetParamValues("5")
    if err := h.AddItem(c); err != nil {
        t.Fatalf("AddItem: %v", err)
    }
    if rec.Code != http.StatusConflict {
        t.Fatalf("expected 409 for owned movie, got %d", rec.Code)
    }
}

func TestGetCartReturnsItems(t *testing.T) {
    h, mock := testCartHandler(t)

    mock.ExpectQuery("SELECT id, user_id FROM carts").WithArgs(uint64(42)).
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(7, 42))
    mock.ExpectQuery("FROM cart_items ci").WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"movie_id", "name", "year", "price_cents", "added_at"}).
            AddRow(1, "Alien", 1979, 999, time.Now()))

    c, rec := authedContext(http.MethodGet, "/api/v1/cart", 42)
    if err := h.Get(c); err != nil {
        t.Fatalf("Get: %v", err)
    }
    var cart repository.CartDetail
    if err := json.Unmarshal(rec.Body.Bytes(), &cart); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if len(cart.Items) != 1 || cart.Items[0].Name != "Alien" || cart.TotalCents != 999 {
        t.Fatalf("unexpected cart %+v", cart)
    }
}
