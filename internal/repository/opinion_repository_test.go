package repository

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
)

func TestAddCommentStoresTopLevel(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewOpinionRepo(db)

    mock.ExpectExec("INSERT INTO comments").WithArgs(uint64(42), uint64(5), "great movie").
        WillReturnResult(sqlmock.NewResult(9, 1))
    mock.ExpectQuery("FROM comments WHERE id").WithArgs(uint64(9)).
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "movie_id", "parent_id", "content", "created_at"}).
            AddRow(9, 42, 5, nil, "great movie", time.Now()))

    comment, err := repo.AddComment(context.Background(), 42, 5, "great movie")
    if err != nil {
        t.Fatalf("AddComment: %v", err)
    }
    if comment.ID != 9 || comment.ParentID != nil {
        t.Fatalf("unexpected comment %+v", comment)
    }
}

// Two racing first comments both reach the INSERT; the unique key on
// (user_id, movie_id, top_key) rejects the loser.
func TestAddCommentDuplicateTopLevel(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewOpinionRepo(db)

    mock.ExpectExec("INSERT INTO comments").WithArgs(uint64(42), uint64(5), "again").
        WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '42-5-1' for key 'comments.uq_comments_toplevel'"))

    if _, err := repo.AddComment(context.Background(), 42, 5, "again"); err != ErrAlreadyCommented {
        t.Fatalf("expected ErrAlreadyCommented, got %v", err)
    }
}

func TestAddReplyToOwnComment(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewOpinionRepo(db)

    mock.ExpectQuery("FROM comments c").WithArgs(uint64(9)).
        WillReturnRows(sqlmock.NewRows([]string{"user_id", "movie_id", "content", "name"}).
            AddRow(42, 5, "great movie", "Alien"))

    if _, err := repo.AddReply(context.Background(), 42, 9, "replying to myself"); err != ErrOwnComment {
        t.Fatalf("expected ErrOwnComment, got %v", err)
    }
}

func TestRateTwice(t *testing.T) {
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    defer db.Close()
    repo := NewOpinionRepo(db)

    mock.ExpectExec("INSERT INTO ratings").WithArgs(uint64(42), uint64(5), 8).
        WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '42-5' for key 'ratings.PRIMARY'"))

    if err := repo.Rate(context.Background(), 42, 5, 8); err != ErrAlreadyRated {
        t.Fatalf("expected ErrAlreadyRated, got %v", err)
    }
}
