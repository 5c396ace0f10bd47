package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"
    "unicode/utf8"

    "github.com/labstack/echo/v4"

    "github.com/olexmazur/online-cinema/internal/middleware"
    "github.com/olexmazur/online-cinema/internal/queue"
    "github.com/olexmazur/online-cinema/internal/repository"
    queuepub "github.com/olexmazur/online-cinema/internal/service"
)

// OpinionHandler covers favorites, comments and ratings.
type OpinionHandler struct {
    Opinions *repository.OpinionRepo
    Movies   *repository.MovieRepo
    Users    *repository.UserRepo
}

func NewOpinionHandler(o *repository.OpinionRepo, m *repository.MovieRepo, u *repository.UserRepo) *OpinionHandler {
    return &OpinionHandler{Opinions: o, Movies: m, Users: u}
}

type commentReq struct {
    Content string `json:"content"`
}
type rateReq struct {
    Rate int `json:"rate"`
}

// movieID parses the :id route param and verifies the movie exists.
func (h *OpinionHandler) movieID(ctx context.Context, c echo.Context) (uint64, string, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
        return 0, "", false
    }
    title, err := h.Movies.Title(ctx, id)
    if err != nil {
        if err == repository.ErrNotFound {
            _ = c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        } else {
            _ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
        }
        return 0, "", false
    }
    return id, title, true
}

// ----- favorites -----

func (h *OpinionHandler) AddFavorite(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    id, _, ok := h.movieID(ctx, c)
    if !ok {
        return nil
    }
    if err := h.Opinions.AddFavorite(ctx, middleware.UserID(c), id); err != nil {
        if err == repository.ErrConflict {
            return c.JSON(http.StatusConflict, echo.Map{"error": "already a favorite"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

func (h *OpinionHandler) RemoveFavorite(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Opinions.RemoveFavorite(ctx, middleware.UserID(c), id); err != nil {
        if err == repository.ErrNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "not a favorite"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

func (h *OpinionHandler) ListFavorites(c echo.Context) error {
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

    movies, err := h.Opinions.ListFavorites(ctx, middleware.UserID(c), (page-1)*perPage, perPage)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"movies": movies, "page": page, "per_page": perPage})
}

// ----- comments -----

// AddComment stores the user's one top-level comment on a movie.
func (h *OpinionHandler) AddComment(c echo.Context) error {
    var req commentReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    id, _, ok := h.movieID(ctx, c)
    if !ok {
        return nil
    }
    comment, err := h.Opinions.AddComment(ctx, middleware.UserID(c), id, strings.TrimSpace(req.Content))
    if err != nil {
        if err == repository.ErrAlreadyCommented {
            return c.JSON(http.StatusConflict, echo.Map{"error": "movie already commented"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
    }
    return c.JSON(http.StatusCreated, comment)
}

// Reply answers an existing comment and notifies its author by email.
func (h *OpinionHandler) Reply(c echo.Context) error {
    commentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid comment id"})
    }
    var req commentReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    info, err := h.Opinions.AddReply(ctx, middleware.UserID(c), commentID, strings.TrimSpace(req.Content))
    if err != nil {
        switch err {
        case repository.ErrNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "comment not found"})
        case repository.ErrOwnComment:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot reply to your own comment"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
    }

    if parent, err := h.Users.GetByID(ctx, info.ParentUserID); err == nil {
        _ = queuepub.PublishEmail(ctx, queue.EmailEvent{
            Kind:          queue.EmailCommentReply,
            To:            parent.Email,
            MovieTitle:    info.MovieTitle,
            ParentExcerpt: excerpt(info.ParentContent),
            ReplyExcerpt:  excerpt(info.Reply.Content),
        })
    }
    return c.JSON(http.StatusCreated, info.Reply)
}

func (h *OpinionHandler) ListComments(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    id, _, ok := h.movieID(ctx, c)
    if !ok {
        return nil
    }
    comments, err := h.Opinions.ListComments(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"comments": comments})
}

// ----- ratings -----

// Rate stores a 1..10 score, once per user and movie.
func (h *OpinionHandler) Rate(c echo.Context) error {
    var req rateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Rate < 1 || req.Rate > 10 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "rate must be within 1..10"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    id, _, ok := h.movieID(ctx, c)
    if !ok {
        return nil
    }
    if err := h.Opinions.Rate(ctx, middleware.UserID(c), id, req.Rate); err != nil {
        if err == repository.ErrAlreadyRated {
            return c.JSON(http.StatusConflict, echo.Map{"error": "movie already rated"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// excerpt trims long comment bodies for email notifications.
func excerpt(s string) string {
    return truncate(s, 120)
}

// truncate shortens s to at most max bytes plus an ellipsis, stepping
// back to a rune boundary so multi-byte characters never get split.
func truncate(s string, max int) string {
    if len(s) <= max {
        return s
    }
    cut := max
    for cut > 0 && !utf8.RuneStart(s[cut]) {
        cut--
    }
    return s[:cut] + "..."
}
