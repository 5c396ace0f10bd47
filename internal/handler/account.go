package handler

import (
    "context"
    "database/sql"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/olexmazur/online-cinema/internal/config"
    "github.com/olexmazur/online-cinema/internal/middleware"
    "github.com/olexmazur/online-cinema/internal/model"
    "github.com/olexmazur/online-cinema/internal/queue"
    "github.com/olexmazur/online-cinema/internal/repository"
    queuepub "github.com/olexmazur/online-cinema/internal/service"
    "github.com/olexmazur/online-cinema/internal/utils"
)

// AccountHandler covers account lifecycle beyond login: activation,
// password reset and group administration.
type AccountHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    Tokens *repository.TokenRepo
}

func NewAccountHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AccountHandler {
    return &AccountHandler{Cfg: cfg, Users: u, Tokens: t}
}

type tokenReq struct {
    Token string `json:"token"`
}
type emailReq struct {
    Email string `json:"email"`
}
type resetCompleteReq struct {
    Token    string `json:"token"`
    Password string `json:"password"`
}
type changePasswordReq struct {
    OldPassword string `json:"old_password"`
    NewPassword string `json:"new_password"`
}
type setGroupReq struct {
    Group string `json:"group"`
}

// Activate redeems an activation token.  The token is single-use: it is
// consumed even when activation ultimately fails.
func (h *AccountHandler) Activate(c echo.Context) error {
    var req tokenReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Tokens.ConsumeActivation(ctx, utils.HashToken(strings.TrimSpace(req.Token)))
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
    }
    if err := h.Users.Activate(ctx, uid); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "account already active"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
    }

    if u, err := h.Users.GetByID(ctx, uid); err == nil {
        _ = queuepub.PublishEmail(ctx, queue.EmailEvent{Kind: queue.EmailActivationDone, To: u.Email})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "account activated"})
}

// ResendActivation issues a fresh activation token for an inactive
// account.  The previous token, if any, is replaced.
func (h *AccountHandler) ResendActivation(c echo.Context) error {
    var req emailReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
    }
    email := strings.ToLower(strings.TrimSpace(req.Email))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, email)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown email"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if u.IsActive {
        return c.JSON(http.StatusConflict, echo.Map{"error": "account already active"})
    }

    act, err := utils.NewOneTimeToken(h.Cfg.ActivationTTLHours)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue activation failed"})
    }
    if err := h.Tokens.StoreActivation(ctx, u.ID, utils.HashToken(act.Raw), act.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save activation failed"})
    }
    _ = queuepub.PublishEmail(ctx, queue.EmailEvent{Kind: queue.EmailActivation, To: u.Email, Token: act.Raw})

    return c.JSON(http.StatusAccepted, echo.Map{"message": "activation token sent"})
}

// RequestPasswordReset always answers 202 so the endpoint cannot be used
// to probe which emails are registered.  A token is only issued for
// active accounts.
func (h *AccountHandler) RequestPasswordReset(c echo.Context) error {
    var req emailReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
    }
    email := strings.ToLower(strings.TrimSpace(req.Email))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, email)
    if err == nil && u.IsActive {
        if tok, err := utils.NewOneTimeToken(h.Cfg.ResetTTLHours); err == nil {
            if err := h.Tokens.StoreReset(ctx, u.ID, utils.HashToken(tok.Raw), tok.Exp); err == nil {
                _ = queuepub.PublishEmail(ctx, queue.EmailEvent{Kind: queue.EmailPasswordReset, To: u.Email, Token: tok.Raw})
            }
        }
    }
    return c.JSON(http.StatusAccepted, echo.Map{"message": "if the account exists, a reset token was sent"})
}

// CompletePasswordReset redeems a reset token and sets the new password.
// Every refresh session is revoked: a reset usually means the old
// credentials may be compromised.
func (h *AccountHandler) CompletePasswordReset(c echo.Context) error {
    var req resetCompleteReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
    }
    if len(req.Password) < 8 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 chars"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Tokens.ConsumeReset(ctx, utils.HashToken(strings.TrimSpace(req.Token)))
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
    }
    if err := h.Users.UpdatePassword(ctx, uid, req.Password, h.Cfg.BcryptCost); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
    }
    _ = h.Tokens.RevokeAllForUser(ctx, uid)

    if u, err := h.Users.GetByID(ctx, uid); err == nil {
        _ = queuepub.PublishEmail(ctx, queue.EmailEvent{Kind: queue.EmailPasswordResetDone, To: u.Email})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// ChangePassword lets an authenticated user rotate their password after
// proving the old one.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
    var req changePasswordReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if len(req.NewPassword) < 8 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 chars"})
    }
    uid := middleware.UserID(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }
    if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "wrong password"})
    }
    if err := h.Users.UpdatePassword(ctx, uid, req.NewPassword, h.Cfg.BcryptCost); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    // Other sessions keep working with an old password otherwise.
    _ = h.Tokens.RevokeAllForUser(ctx, uid)

    _ = queuepub.PublishEmail(ctx, queue.EmailEvent{Kind: queue.EmailPasswordResetDone, To: u.Email})
    return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// SetGroup moves a user between USER, MODERATOR and ADMIN.  Admin only.
func (h *AccountHandler) SetGroup(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    var req setGroupReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    group := strings.ToUpper(strings.TrimSpace(req.Group))
    if !model.ValidGroup(group) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown group"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Users.SetGroup(ctx, id, group); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"user_id": id, "group": group})
}
