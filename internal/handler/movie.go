package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/olexmazur/online-cinema/internal/repository"
)

// MovieHandler serves the public catalog plus the moderation CRUD.
type MovieHandler struct {
    Movies *repository.MovieRepo
}

func NewMovieHandler(m *repository.MovieRepo) *MovieHandler {
    return &MovieHandler{Movies: m}
}

type movieReq struct {
    Name          string   `json:"name"`
    Year          int      `json:"year"`
    RuntimeMin    int      `json:"runtime_min"`
    IMDB          float64  `json:"imdb"`
    Votes         int64    `json:"votes"`
    MetaScore     *float64 `json:"meta_score"`
    Gross         *float64 `json:"gross"`
    Description   string   `json:"description"`
    PriceCents    int64    `json:"price_cents"`
    Certification string   `json:"certification"`
    Genres        []string `json:"genres"`
    Directors     []string `json:"directors"`
    Stars         []string `json:"stars"`
}

func (req movieReq) validate() string {
    if strings.TrimSpace(req.Name) == "" {
        return "name required"
    }
    if req.Year < 1888 || req.Year > time.Now().Year()+1 {
        return "implausible year"
    }
    if req.IMDB < 0 || req.IMDB > 10 {
        return "imdb must be within 0..10"
    }
    if req.PriceCents < 0 {
        return "price must not be negative"
    }
    return ""
}

func (req movieReq) input() repository.MovieInput {
    return repository.MovieInput{
        Name:          strings.TrimSpace(req.Name),
        Year:          req.Year,
        RuntimeMin:    req.RuntimeMin,
        IMDB:          req.IMDB,
        Votes:         req.Votes,
        MetaScore:     req.MetaScore,
        Gross:         req.Gross,
        Description:   req.Description,
        PriceCents:    req.PriceCents,
        Certification: strings.TrimSpace(req.Certification),
        Genres:        req.Genres,
        Directors:     req.Directors,
        Stars:         req.Stars,
    }
}

// List returns one page of the catalog with the total count so clients
// can render pagination.
func (h *MovieHandler) List(c echo.Context) error {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
    if perPage < 1 || perPage > 100 {
        perPage = 20
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    movies, total, err := h.Movies.List(ctx, (page-1)*perPage, perPage)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    totalPages := (total + int64(perPage) - 1) / int64(perPage)
    return c.JSON(http.StatusOK, echo.Map{
        "movies":      movies,
        "total":       total,
        "page":        page,
        "per_page":    perPage,
        "total_pages": totalPages,
    })
}

// Get returns the full detail of one movie.
func (h *MovieHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    m, err := h.Movies.GetByID(ctx, id)
    if err != nil {
        if err == repository.ErrNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, m)
}

// Create adds a movie to the catalog.  Moderator or admin.
func (h *MovieHandler) Create(c echo.Context) error {
    var req movieReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if msg := req.validate(); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    m, err := h.Movies.Create(ctx, req.input())
    if err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "movie already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
    }
    return c.JSON(http.StatusCreated, m)
}

// Update replaces a movie's attributes and associations.
func (h *MovieHandler) Update(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    var req movieReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if msg := req.validate(); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    m, err := h.Movies.Update(ctx, id, req.input())
    if err != nil {
        switch err {
        case repository.ErrNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        case repository.ErrConflict:
            return c.JSON(http.StatusConflict, echo.Map{"error": "movie already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.JSON(http.StatusOK, m)
}

// Delete removes a movie unless it sits in someone's cart or order.
func (h *MovieHandler) Delete(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Movies.Delete(ctx, id); err != nil {
        switch err {
        case repository.ErrNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        case repository.ErrConflict:
            return c.JSON(http.StatusConflict, echo.Map{"error": "movie is referenced by carts or orders"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
