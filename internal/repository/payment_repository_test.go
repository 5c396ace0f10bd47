package repository

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
)

func TestCreateForSessionSettlesOrder(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewPaymentRepo(db)

    mock.ExpectBegin()
    mock.ExpectQuery("FROM orders WHERE external_session_id").WithArgs("cs_123").
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "total_cents"}).
            AddRow(11, 42, "PENDING", 2298))
    mock.ExpectExec("INSERT INTO payments").
        WithArgs(uint64(42), uint64(11), "SUCCESSFUL", int64(2298), "cs_123").
        WillReturnResult(sqlmock.NewResult(5, 1))
    mock.ExpectExec("INSERT INTO payment_items").WithArgs(int64(5), uint64(11)).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectExec("UPDATE orders SET status").WithArgs("PAID", uint64(11)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT IGNORE INTO purchases").WithArgs(uint64(42), uint64(11)).
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectQuery("SELECT created_at FROM payments").WithArgs(int64(5)).
        WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
    mock.ExpectCommit()

    p, err := repo.CreateForSession(context.Background(), "cs_123")
    if err != nil {
        t.Fatalf("CreateForSession: %v", err)
    }
    if p.OrderID != 11 || p.AmountCents != 2298 || p.Status != "SUCCESSFUL" {
        t.Fatalf("unexpected payment %+v", p)
    }

    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("unmet expectations: %v", err)
    }
}

// A webhook replay finds the order already PAID.
func TestCreateForSessionReplayAbsorbed(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewPaymentRepo(db)

    mock.ExpectBegin()
    mock.ExpectQuery("FROM orders WHERE external_session_id").WithArgs("cs_123").
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "total_cents"}).
            AddRow(11, 42, "PAID", 2298))
    mock.ExpectRollback()

    if _, err := repo.CreateForSession(context.Background(), "cs_123"); err != ErrAlreadyProcessed {
        t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
    }
}

// Two deliveries race: the second insert trips the unique session id.
func TestCreateForSessionConcurrentDelivery(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewPaymentRepo(db)

    mock.ExpectBegin()
    mock.ExpectQuery("FROM orders WHERE external_session_id").WithArgs("cs_123").
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "total_cents"}).
            AddRow(11, 42, "PENDING", 2298))
    mock.ExpectExec("INSERT INTO payments").
        WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'cs_123'"))
    mock.ExpectRollback()

    if _, err := repo.CreateForSession(context.Background(), "cs_123"); err != ErrAlreadyProcessed {
        t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
    }
}

func TestCreateForSessionUnknownSession(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewPaymentRepo(db)

    mock.ExpectBegin()
    mock.ExpectQuery("FROM orders WHERE external_session_id").WithArgs("cs_nope").
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "total_cents"}))
    mock.ExpectRollback()

    if _, err := repo.CreateForSession(context.Background(), "cs_nope"); err != ErrNotFound {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
}
