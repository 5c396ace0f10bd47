package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// OpinionRepo covers favorites, commentary and ratings.  None of these
// writes span multiple tables, so the repository sticks to plain
// statements; the per-user uniqueness rules are backed by database
// constraints and surfaced as sentinel errors.
type OpinionRepo struct {
    db *sql.DB
}

// NewOpinionRepo returns a new OpinionRepo bound to the given database.
func NewOpinionRepo(db *sql.DB) *OpinionRepo { return &OpinionRepo{db: db} }

// ErrAlreadyCommented signals a second top-level comment on one movie.
var ErrAlreadyCommented = errors.New("movie already commented")

// ErrAlreadyRated signals a second rating of one movie.
var ErrAlreadyRated = errors.New("movie already rated")

// ErrOwnComment signals a reply to the user's own comment.
var ErrOwnComment = errors.New("cannot reply to own comment")

// ----- favorites -----

// AddFavorite marks a movie as the user's favorite.  ErrConflict when it
// already is.
func (r *OpinionRepo) AddFavorite(ctx context.Context, userID, movieID uint64) error {
    _, err := r.db.ExecContext(ctx,
        "INSERT INTO favorites (user_id, movie_id) VALUES (?,?)", userID, movieID)
    if isDuplicateKey(err) {
        return ErrConflict
    }
    return err
}

// RemoveFavorite unmarks a favorite.  ErrNotFound when it was not one.
func (r *OpinionRepo) RemoveFavorite(ctx context.Context, userID, movieID uint64) error {
    res, err := r.db.ExecContext(ctx,
        "DELETE FROM favorites WHERE user_id=? AND movie_id=?", userID, movieID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}

// ListFavorites returns one page of the user's favorite movies.
func (r *OpinionRepo) ListFavorites(ctx context.Context, userID uint64, offset, limit int) ([]MovieSummary, error) {
    if limit <= 0 || limit > 100 {
        limit = 20
    }
    rows, err := r.db.QueryContext(ctx,
        `SELECT m.id, m.uuid, m.name, m.year, m.imdb, m.price_cents
         FROM favorites f
         JOIN movies m ON m.id = f.movie_id
         WHERE f.user_id = ?
         ORDER BY f.added_at DESC
         LIMIT ? OFFSET ?`, userID, limit, offset)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []MovieSummary{}
    for rows.Next() {
        var m MovieSummary
        if err := rows.Scan(&m.ID, &m.UUID, &m.Name, &m.Year, &m.IMDB, &m.PriceCents); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}

// ----- comments -----

// CommentDetail is a stored comment as returned to clients.
type CommentDetail struct {
    ID        uint64    `json:"id"`
    UserID    uint64    `json:"user_id"`
    MovieID   uint64    `json:"movie_id"`
    ParentID  *uint64   `json:"parent_id,omitempty"`
    Content   string    `json:"content"`
    CreatedAt time.Time `json:"created_at"`
}

// AddComment stores a top-level comment.  A user gets one per movie;
// a second attempt returns ErrAlreadyCommented.  The unique key on
// (user_id, movie_id, top_key) backs the rule, so two concurrent first
// comments cannot both land: the loser's insert hits the duplicate key.
func (r *OpinionRepo) AddComment(ctx context.Context, userID, movieID uint64, content string) (*CommentDetail, error) {
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO comments (user_id, movie_id, content) VALUES (?,?,?)",
        userID, movieID, content)
    if err != nil {
        if isDuplicateKey(err) {
            return nil, ErrAlreadyCommented
        }
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    return r.getComment(ctx, uint64(id))
}

// ReplyInfo carries what the notification event needs about the parent
// comment alongside the stored reply.
type ReplyInfo struct {
    Reply         *CommentDetail
    ParentUserID  uint64
    ParentContent string
    MovieTitle    string
}

// AddReply stores a reply under an existing comment.  ErrNotFound when
// the parent does not exist, ErrOwnComment when replying to oneself.
func (r *OpinionRepo) AddReply(ctx context.Context, userID, commentID uint64, content string) (*ReplyInfo, error) {
    var (
        parentUser    uint64
        parentMovie   uint64
        parentContent string
        movieTitle    string
    )
    err := r.db.QueryRowContext(ctx,
        `SELECT c.user_id, c.movie_id, c.content, m.name
         FROM comments c
         JOIN movies m ON m.id = c.movie_id
         WHERE c.id = ? LIMIT 1`, commentID).
        Scan(&parentUser, &parentMovie, &parentContent, &movieTitle)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrNotFound
        }
        return nil, err
    }
    if parentUser == userID {
        return nil, ErrOwnComment
    }
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO comments (user_id, movie_id, parent_id, content) VALUES (?,?,?,?)",
        userID, parentMovie, commentID, content)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    reply, err := r.getComment(ctx, uint64(id))
    if err != nil {
        return nil, err
    }
    return &ReplyInfo{
        Reply:         reply,
        ParentUserID:  parentUser,
        ParentContent: parentContent,
        MovieTitle:    movieTitle,
    }, nil
}

// ListComments returns all comments of a movie, oldest first, replies
// included (clients thread them via parent_id).
func (r *OpinionRepo) ListComments(ctx context.Context, movieID uint64) ([]CommentDetail, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT id, user_id, movie_id, parent_id, content, created_at FROM comments WHERE movie_id=? ORDER BY id",
        movieID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []CommentDetail{}
    for rows.Next() {
        var (
            c      CommentDetail
            parent sql.NullInt64
        )
        if err := rows.Scan(&c.ID, &c.UserID, &c.MovieID, &parent, &c.Content, &c.CreatedAt); err != nil {
            return nil, err
        }
        if parent.Valid {
            p := uint64(parent.Int64)
            c.ParentID = &p
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

func (r *OpinionRepo) getComment(ctx context.Context, id uint64) (*CommentDetail, error) {
    var (
        c      CommentDetail
        parent sql.NullInt64
    )
    err := r.db.QueryRowContext(ctx,
        "SELECT id, user_id, movie_id, parent_id, content, created_at FROM comments WHERE id=? LIMIT 1", id).
        Scan(&c.ID, &c.UserID, &c.MovieID, &parent, &c.Content, &c.CreatedAt)
    if err != nil {
        return nil, err
    }
    if parent.Valid {
        p := uint64(parent.Int64)
        c.ParentID = &p
    }
    return &c, nil
}

// ----- ratings -----

// Rate stores a 1..10 score, once per user per movie.
func (r *OpinionRepo) Rate(ctx context.Context, userID, movieID uint64, rate int) error {
    _, err := r.db.ExecContext(ctx,
        "INSERT INTO ratings (user_id, movie_id, rate) VALUES (?,?,?)",
        userID, movieID, rate)
    if isDuplicateKey(err) {
        return ErrAlreadyRated
    }
    return err
}
