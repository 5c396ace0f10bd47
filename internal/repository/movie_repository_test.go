package repository

import (
    "context"
    "testing"

    "github.com/DATA-DOG/go-sqlmock"
)

func TestDeleteGuardedByReferences(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewMovieRepo(db)

    mock.ExpectQuery("SELECT COUNT").WithArgs(uint64(5), uint64(5)).
        WillReturnRows(sqlmock.NewRows([]string{"refs"}).AddRow(3))

    if err := repo.Delete(context.Background(), 5); err != ErrConflict {
        t.Fatalf("expected ErrConflict for referenced movie, got %v", err)
    }
}

func TestDeleteRemovesUnreferencedMovie(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewMovieRepo(db)

    mock.ExpectQuery("SELECT COUNT").WithArgs(uint64(5), uint64(5)).
        WillReturnRows(sqlmock.NewRows([]string{"refs"}).AddRow(0))
    mock.ExpectExec("DELETE FROM movies").WithArgs(uint64(5)).
        WillReturnResult(sqlmock.NewResult(0, 1))

    if err := repo.Delete(context.Background(), 5); err != nil {
        t.Fatalf("Delete: %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Errorf("unmet expectations: %v", err)
    }
}

func TestDeleteUnknownMovie(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewMovieRepo(db)

    mock.ExpectQuery("SELECT COUNT").WithArgs(uint64(99), uint64(99)).
        WillReturnRows(sqlmock.NewRows([]string{"refs"}).AddRow(0))
    mock.ExpectExec("DELETE FROM movies").WithArgs(uint64(99)).
        WillReturnResult(sqlmock.NewResult(0, 0))

    if err := repo.Delete(context.Background(), 99); err != ErrNotFound {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
}

func TestListReturnsPageAndTotal(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewMovieRepo(db)

    mock.ExpectQuery("SELECT COUNT").
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(57))
    mock.ExpectQuery("FROM movies ORDER BY id DESC").WithArgs(2, 0).
        WillReturnRows(sqlmock.NewRows([]string{"id", "uuid", "name", "year", "imdb", "price_cents"}).
            AddRow(2, "u2", "Heat", 1995, 8.3, 1299).
            AddRow(1, "u1", "Alien", 1979, 8.5, 999))

    movies, total, err := repo.List(context.Background(), 0, 2)
    if err != nil {
        t.Fatalf("List: %v", err)
    }
    if total != 57 {
        t.Fatalf("expected total 57, got %d", total)
    }
    if len(movies) != 2 || movies[0].Name != "Heat" {
        t.Fatalf("unexpected page %+v", movies)
    }
}
