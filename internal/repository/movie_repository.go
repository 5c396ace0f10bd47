package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/google/uuid"
)

// MovieRepo provides catalog CRUD over the movies table and its lookup
// satellites (genres, directors, stars, certifications).  Association
// names arrive as plain strings from the API; the repository get-or-creates
// the lookup rows and rewrites the join tables inside one transaction so a
// half-linked movie is never visible.
type MovieRepo struct {
    db *sql.DB
}

// NewMovieRepo returns a new MovieRepo bound to the given database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// MovieInput carries the writable fields of a movie.  Genres, Directors
// and Stars are names; unknown ones are created on the fly.
type MovieInput struct {
    Name          string
    Year          int
    RuntimeMin    int
    IMDB          float64
    Votes         int64
    MetaScore     *float64
    Gross         *float64
    Description   string
    PriceCents    int64
    Certification string
    Genres        []string
    Directors     []string
    Stars         []string
}

// MovieDetail is the full catalog view of a movie with association names
// resolved.  It is what GET /movies/:id returns.
type MovieDetail struct {
    ID            uint64    `json:"id"`
    UUID          string    `json:"uuid"`
    Name          string    `json:"name"`
    Year          int       `json:"year"`
    RuntimeMin    int       `json:"runtime_min"`
    IMDB          float64   `json:"imdb"`
    Votes         int64     `json:"votes"`
    MetaScore     *float64  `json:"meta_score,omitempty"`
    Gross         *float64  `json:"gross,omitempty"`
    Description   string    `json:"description"`
    PriceCents    int64     `json:"price_cents"`
    Certification *string   `json:"certification,omitempty"`
    Genres        []string  `json:"genres"`
    Directors     []string  `json:"directors"`
    Stars         []string  `json:"stars"`
    CreatedAt     time.Time `json:"created_at"`
}

// MovieSummary is the list-view projection used by the paginated catalog.
type MovieSummary struct {
    ID         uint64  `json:"id"`
    UUID       string  `json:"uuid"`
    Name       string  `json:"name"`
    Year       int     `json:"year"`
    IMDB       float64 `json:"imdb"`
    PriceCents int64   `json:"price_cents"`
}

// Create inserts a movie with its associations and returns the stored
// detail.  A duplicate (name, year, runtime) triplet yields ErrConflict.
func (r *MovieRepo) Create(ctx context.Context, in MovieInput) (*MovieDetail, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    defer func() { _ = tx.Rollback() }()

    var certID *uint64
    if strings.TrimSpace(in.Certification) != "" {
        id, err := getOrCreateLookup(ctx, tx, "certifications", in.Certification)
        if err != nil {
            return nil, err
        }
        certID = &id
    }

    res, err := tx.ExecContext(ctx,
        `INSERT INTO movies (uuid, name, year, runtime_min, imdb, votes, meta_score, gross, description, price_cents, certification_id)
         VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
        uuid.NewString(), in.Name, in.Year, in.RuntimeMin, in.IMDB, in.Votes,
        in.MetaScore, in.Gross, in.Description, in.PriceCents, certID)
    if err != nil {
        if isDuplicateKey(err) {
            return nil, ErrConflict
        }
        return nil, err
    }
    movieID, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }

    if err := r.linkAssociations(ctx, tx, uint64(movieID), in); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    return r.GetByID(ctx, uint64(movieID))
}

// Update rewrites a movie and all of its associations.  ErrNotFound when
// the movie does not exist, ErrConflict on a duplicate triplet.
func (r *MovieRepo) Update(ctx context.Context, id uint64, in MovieInput) (*MovieDetail, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    defer func() { _ = tx.Rollback() }()

    var certID *uint64
    if strings.TrimSpace(in.Certification) != "" {
        cid, err := getOrCreateLookup(ctx, tx, "certifications", in.Certification)
        if err != nil {
            return nil, err
        }
        certID = &cid
    }

    res, err := tx.ExecContext(ctx,
        `UPDATE movies SET name=?, year=?, runtime_min=?, imdb=?, votes=?, meta_score=?, gross=?, description=?, price_cents=?, certification_id=?
         WHERE id=?`,
        in.Name, in.Year, in.RuntimeMin, in.IMDB, in.Votes,
        in.MetaScore, in.Gross, in.Description, in.PriceCents, certID, id)
    if err != nil {
        if isDuplicateKey(err) {
            return nil, ErrConflict
        }
        return nil, err
    }
    if _, err := res.RowsAffected(); err != nil {
        return nil, err
    }
    // RowsAffected is 0 both for a missing row and for a no-op update, so
    // existence is checked explicitly.
    var exists uint64
    if err := tx.QueryRowContext(ctx, "SELECT id FROM movies WHERE id=? LIMIT 1", id).Scan(&exists); err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrNotFound
        }
        return nil, err
    }

    for _, link := range []string{"movie_genres", "movie_directors", "movie_stars"} {
        if _, err := tx.ExecContext(ctx, "DELETE FROM "+link+" WHERE movie_id=?", id); err != nil {
            return nil, err
        }
    }
    if err := r.linkAssociations(ctx, tx, id, in); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    return r.GetByID(ctx, id)
}

// linkAssociations get-or-creates the named lookup rows and fills the
// three join tables for the movie.
func (r *MovieRepo) linkAssociations(ctx context.Context, tx *sql.Tx, movieID uint64, in MovieInput) error {
    groups := []struct {
        lookup string
        link   string
        column string
        names  []string
    }{
        {"genres", "movie_genres", "genre_id", in.Genres},
        {"directors", "movie_directors", "director_id", in.Directors},
        {"stars", "movie_stars", "star_id", in.Stars},
    }
    for _, g := range groups {
        for _, name := range g.names {
            name = strings.TrimSpace(name)
            if name == "" {
                continue
            }
            id, err := getOrCreateLookup(ctx, tx, g.lookup, name)
            if err != nil {
                return err
            }
            if _, err := tx.ExecContext(ctx,
                "INSERT IGNORE INTO "+g.link+" (movie_id, "+g.column+") VALUES (?,?)",
                movieID, id); err != nil {
                return err
            }
        }
    }
    return nil
}

// getOrCreateLookup resolves a name in a single-name lookup table,
// inserting it when missing.  A concurrent insert losing the race falls
// back to the select.
func getOrCreateLookup(ctx context.Context, tx *sql.Tx, table, name string) (uint64, error) {
    name = strings.TrimSpace(name)
    var id uint64
    err := tx.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name=? LIMIT 1", name).Scan(&id)
    if err == nil {
        return id, nil
    }
    if err != sql.ErrNoRows {
        return 0, err
    }
    res, err := tx.ExecContext(ctx, "INSERT INTO "+table+" (name) VALUES (?)", name)
    if err != nil {
        if isDuplicateKey(err) {
            err = tx.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name=? LIMIT 1", name).Scan(&id)
            return id, err
        }
        return 0, err
    }
    n, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(n), nil
}

// GetByID loads a movie with its certification and association names.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*MovieDetail, error) {
    const q = `SELECT m.id, m.uuid, m.name, m.year, m.runtime_min, m.imdb, m.votes,
                      m.meta_score, m.gross, m.description, m.price_cents, c.name, m.created_at
               FROM movies m
               LEFT JOIN certifications c ON c.id = m.certification_id
               WHERE m.id = ?`
    var det MovieDetail
    var meta, gross sql.NullFloat64
    var cert sql.NullString
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &det.ID, &det.UUID, &det.Name, &det.Year, &det.RuntimeMin, &det.IMDB, &det.Votes,
        &meta, &gross, &det.Description, &det.PriceCents, &cert, &det.CreatedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrNotFound
        }
        return nil, err
    }
    if meta.Valid {
        v := meta.Float64
        det.MetaScore = &v
    }
    if gross.Valid {
        v := gross.Float64
        det.Gross = &v
    }
    if cert.Valid {
        v := cert.String
        det.Certification = &v
    }

    var errNames error
    det.Genres, errNames = r.namesFor(ctx, id, "genres", "movie_genres", "genre_id")
    if errNames != nil {
        return nil, errNames
    }
    det.Directors, errNames = r.namesFor(ctx, id, "directors", "movie_directors", "director_id")
    if errNames != nil {
        return nil, errNames
    }
    det.Stars, errNames = r.namesFor(ctx, id, "stars", "movie_stars", "star_id")
    if errNames != nil {
        return nil, errNames
    }
    return &det, nil
}

func (r *MovieRepo) namesFor(ctx context.Context, movieID uint64, lookup, link, column string) ([]string, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT l.name FROM "+lookup+" l JOIN "+link+" j ON j."+column+" = l.id WHERE j.movie_id=? ORDER BY l.name",
        movieID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    names := []string{}
    for rows.Next() {
        var n string
        if err := rows.Scan(&n); err != nil {
            return nil, err
        }
        names = append(names, n)
    }
    return names, rows.Err()
}

// List returns one page of the catalog, newest first, plus the total row
// count for pagination headers.
func (r *MovieRepo) List(ctx context.Context, offset, limit int) ([]MovieSummary, int64, error) {
    var total int64
    if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies").Scan(&total); err != nil {
        return nil, 0, err
    }
    rows, err := r.db.QueryContext(ctx,
        "SELECT id, uuid, name, year, imdb, price_cents FROM movies ORDER BY id DESC LIMIT ? OFFSET ?",
        limit, offset)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    out := []MovieSummary{}
    for rows.Next() {
        var m MovieSummary
        if err := rows.Scan(&m.ID, &m.UUID, &m.Name, &m.Year, &m.IMDB, &m.PriceCents); err != nil {
            return nil, 0, err
        }
        out = append(out, m)
    }
    return out, total, rows.Err()
}

// Delete removes a movie unless it is still referenced by a cart or an
// order, in which case ErrConflict is returned.  Lookup links, comments,
// ratings and favorites go away via ON DELETE CASCADE.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
    var refs int
    err := r.db.QueryRowContext(ctx,
        `SELECT (SELECT COUNT(*) FROM cart_items WHERE movie_id=?) +
                (SELECT COUNT(*) FROM order_items WHERE movie_id=?)`,
        id, id).Scan(&refs)
    if err != nil {
        return err
    }
    if refs > 0 {
        return ErrConflict
    }
    res, err := r.db.ExecContext(ctx, "DELETE FROM movies WHERE id=?", id)
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

// Title returns the display name for a movie, ErrNotFound when absent.
// Cart and opinion handlers use it as a cheap existence check.
func (r *MovieRepo) Title(ctx context.Context, id uint64) (string, error) {
    var name string
    err := r.db.QueryRowContext(ctx, "SELECT name FROM movies WHERE id=? LIMIT 1", id).Scan(&name)
    if err == sql.ErrNoRows {
        return "", ErrNotFound
    }
    return name, err
}
