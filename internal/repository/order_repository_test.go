package repository

import (
    "context"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
)

func TestPlaceSkipsPendingAndPurchased(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewOrderRepo(db)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id FROM carts").WithArgs(uint64(42)).
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
    mock.ExpectQuery("FROM cart_items ci").WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"movie_id", "name", "price_cents"}).
            AddRow(1, "Alien", 999).
            AddRow(2, "Heat", 1299).
            AddRow(3, "Ran", 899))
    // Movie 2 already sits in another pending order.
    mock.ExpectQuery("FROM order_items oi").
        WillReturnRows(sqlmock.NewRows([]string{"movie_id"}).AddRow(2))
    // Movie 3 was bought before.
    mock.ExpectQuery("SELECT movie_id FROM purchases").
        WillReturnRows(sqlmock.NewRows([]string{"movie_id"}).AddRow(3))
    mock.ExpectExec("INSERT INTO orders").WithArgs(uint64(42), "PENDING", int64(999)).
        WillReturnResult(sqlmock.NewResult(11, 1))
    mock.ExpectExec("INSERT INTO order_items").WithArgs(int64(11), uint64(1), int64(999)).
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectExec("DELETE FROM cart_items").WithArgs(uint64(7)).
        WillReturnResult(sqlmock.NewResult(0, 3))
    mock.ExpectQuery("SELECT created_at FROM orders").WithArgs(int64(11)).
        WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
    mock.ExpectCommit()

    order, err := repo.Place(context.Background(), 42)
    if err != nil {
        t.Fatalf("Place: %v", err)
    }
    if order.ID != 11 || order.TotalCents != 999 {
        t.Fatalf("unexpected order %+v", order)
    }
    if len(order.Movies) != 1 || order.Movies[0] != "Alien" {
        t.Fatalf("expected only Alien to be ordered, got %v", order.Movies)
    }
    if len(order.SkippedIDs) != 2 {
        t.Fatalf("expected 2 skipped movies, got %v", order.SkippedIDs)
    }

    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("unmet expectations: %v", err)
    }
}

func TestPlaceEmptyCart(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewOrderRepo(db)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id FROM carts").WithArgs(uint64(42)).
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
    mock.ExpectQuery("FROM cart_items ci").WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"movie_id", "name", "price_cents"}))
    mock.ExpectRollback()

    if _, err := repo.Place(context.Background(), 42); err != ErrCartEmpty {
        t.Fatalf("expected ErrCartEmpty, got %v", err)
    }
}

func TestPlaceNothingLeftToOrder(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewOrderRepo(db)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT id FROM carts").WithArgs(uint64(42)).
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
    mock.ExpectQuery("FROM cart_items ci").WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"movie_id", "name", "price_cents"}).
            AddRow(5, "Alien", 999))
    mock.ExpectQuery("FROM order_items oi").
        WillReturnRows(sqlmock.NewRows([]string{"movie_id"}).AddRow(5))
    mock.ExpectQuery("SELECT movie_id FROM purchases").
        WillReturnRows(sqlmock.NewRows([]string{"movie_id"}))
    mock.ExpectRollback()

    if _, err := repo.Place(context.Background(), 42); err != ErrNothingToOrder {
        t.Fatalf("expected ErrNothingToOrder, got %v", err)
    }
}

func TestCancelTransitions(t *testing.T) {
    cases := []struct {
        name    string
        status  string
        wantErr error
    }{
        {"pending is canceled", "PENDING", nil},
        {"canceled stays canceled", "CANCELED", ErrConflict},
        {"paid needs a refund", "PAID", ErrOrderNotPending},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            db, mock, err := sqlmock.New()
            if err != nil {
                t.Fatalf("sqlmock: %v", err)
            }
            defer db.Close()
            repo := NewOrderRepo(db)

            mock.ExpectBegin()
            mock.ExpectQuery("SELECT status FROM orders").WithArgs(uint64(3), uint64(42)).
                WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(tc.status))
            if tc.wantErr == nil {
                mock.ExpectExec("UPDATE orders SET status").WithArgs("CANCELED", uint64(3)).
                    WillReturnResult(sqlmock.NewResult(0, 1))
                mock.ExpectCommit()
            } else {
                mock.ExpectRollback()
            }

            if err := repo.Cancel(context.Background(), 3, 42); err != tc.wantErr {
                t.Fatalf("expected %v, got %v", tc.wantErr, err)
            }
            if err := mock.ExpectationsWereMet(); err != nil {
                t.Errorf("unmet expectations: %v", err)
            }
        })
    }
}

func TestCancelUnknownOrder(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewOrderRepo(db)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT status FROM orders").WithArgs(uint64(99), uint64(42)).
        WillReturnRows(sqlmock.NewRows([]string{"status"}))
    mock.ExpectRollback()

    if err := repo.Cancel(context.Background(), 99, 42); err != ErrNotFound {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
}

func TestExpireStalePending(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewOrderRepo(db)

    mock.ExpectExec("UPDATE orders SET status").
        WillReturnResult(sqlmock.NewResult(0, 4))

    n, err := repo.ExpireStalePending(context.Background(), 24*time.Hour)
    if err != nil {
        t.Fatalf("ExpireStalePending: %v", err)
    }
    if n != 4 {
        t.Fatalf("expected 4 expired orders, got %d", n)
    }
}
