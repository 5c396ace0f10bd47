package repository

import (
    "context"
    "database/sql"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
)

func TestConsumeActivation(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewTokenRepo(db)

    mock.ExpectQuery("FROM activation_tokens WHERE token_hash").WithArgs("abc").
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).
            AddRow(42, time.Now().Add(time.Hour)))
    mock.ExpectExec("DELETE FROM activation_tokens WHERE token_hash").WithArgs("abc").
        WillReturnResult(sqlmock.NewResult(0, 1))

    uid, err := repo.ConsumeActivation(context.Background(), "abc")
    if err != nil {
        t.Fatalf("ConsumeActivation: %v", err)
    }
    if uid != 42 {
        t.Fatalf("expected user 42, got %d", uid)
    }
}

// An expired token is still deleted, but redemption fails.
func TestConsumeActivationExpired(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewTokenRepo(db)

    mock.ExpectQuery("FROM activation_tokens WHERE token_hash").WithArgs("old").
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).
            AddRow(42, time.Now().Add(-time.Hour)))
    mock.ExpectExec("DELETE FROM activation_tokens WHERE token_hash").WithArgs("old").
        WillReturnResult(sqlmock.NewResult(0, 1))

    if _, err := repo.ConsumeActivation(context.Background(), "old"); err != sql.ErrNoRows {
        t.Fatalf("expected sql.ErrNoRows, got %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("unmet expectations: %v", err)
    }
}

// Storing a new activation token replaces the previous one.
func TestStoreActivationReplaces(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewTokenRepo(db)

    exp := time.Now().Add(24 * time.Hour)
    mock.ExpectExec("DELETE FROM activation_tokens WHERE user_id").WithArgs(uint64(42)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT INTO activation_tokens").WithArgs(uint64(42), "newhash", exp).
        WillReturnResult(sqlmock.NewResult(1, 1))

    if err := repo.StoreActivation(context.Background(), 42, "newhash", exp); err != nil {
        t.Fatalf("StoreActivation: %v", err)
    }
}

func TestDeleteExpiredCountsBothTables(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewTokenRepo(db)

    mock.ExpectExec("DELETE FROM activation_tokens WHERE expires_at").
        WillReturnResult(sqlmock.NewResult(0, 3))
    mock.ExpectExec("DELETE FROM password_reset_tokens WHERE expires_at").
        WillReturnResult(sqlmock.NewResult(0, 2))

    n, err := repo.DeleteExpired(context.Background())
    if err != nil {
        t.Fatalf("DeleteExpired: %v", err)
    }
    if n != 5 {
        t.Fatalf("expected 5 deleted tokens, got %d", n)
    }
}

func TestValidateRefreshRejectsRevoked(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewTokenRepo(db)

    mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").WithArgs("h").
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
            AddRow(42, time.Now().Add(time.Hour), time.Now()))

    if _, err := repo.ValidateRefresh(context.Background(), "h"); err == nil {
        t.Fatal("expected revoked token to be rejected")
    }
}
