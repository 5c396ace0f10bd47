// Package router maps URLs to handlers and applies the middleware stack.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/olexmazur/online-cinema/internal/config"
    "github.com/olexmazur/online-cinema/internal/handler"
    "github.com/olexmazur/online-cinema/internal/middleware"
    "github.com/olexmazur/online-cinema/internal/model"
)

// Handlers groups every handler the API serves so registration stays a
// single call from main.
type Handlers struct {
    Auth     *handler.AuthHandler
    Account  *handler.AccountHandler
    Movies   *handler.MovieHandler
    Opinions *handler.OpinionHandler
    Carts    *handler.CartHandler
    Orders   *handler.OrderHandler
    Payments *handler.PaymentHandler
    Webhooks *handler.WebhookHandler
}

// Register wires all routes under /api/v1.  Public catalog reads get the
// Redis response cache; the auth endpoints sit behind the token-bucket
// limiter because they are the ones worth brute-forcing.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
    e.GET("/healthz", handler.Health)

    limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    authed := middleware.JWTAuth(cfg.JWTSecret)
    moderation := middleware.RequireGroup(model.GroupModerator, model.GroupAdmin)
    adminOnly := middleware.RequireGroup(model.GroupAdmin)

    api := e.Group("/api/v1")

    // Accounts.  Registration, login and the token flows are open;
    // everything else needs a session.
    accounts := api.Group("/accounts", limiter)
    accounts.POST("/register", h.Auth.Register)
    accounts.POST("/login", h.Auth.Login)
    accounts.POST("/refresh", h.Auth.Refresh)
    // Logout takes either a refresh token in the body or a bearer token
    // (which then revokes every session), so the JWT is optional here.
    accounts.POST("/logout", h.Auth.Logout, middleware.OptionalJWTAuth(cfg.JWTSecret))
    accounts.POST("/activate", h.Account.Activate)
    accounts.POST("/activate/resend", h.Account.ResendActivation)
    accounts.POST("/password-reset", h.Account.RequestPasswordReset)
    accounts.POST("/password-reset/complete", h.Account.CompletePasswordReset)

    api.GET("/me", h.Auth.Me, authed)
    api.POST("/me/password", h.Account.ChangePassword, authed)
    api.PATCH("/users/:id/group", h.Account.SetGroup, authed, adminOnly)

    // Catalog.  Reads are public and cached; writes are moderation work.
    movies := api.Group("/movies")
    movies.GET("", h.Movies.List, cache)
    movies.GET("/:id", h.Movies.Get, cache)
    movies.GET("/:id/comments", h.Opinions.ListComments, cache)
    movies.POST("", h.Movies.Create, authed, moderation)
    movies.PUT("/:id", h.Movies.Update, authed, moderation)
    movies.DELETE("/:id", h.Movies.Delete, authed, moderation)

    // Opinions.
    movies.POST("/:id/favorite", h.Opinions.AddFavorite, authed)
    movies.DELETE("/:id/favorite", h.Opinions.RemoveFavorite, authed)
    movies.POST("/:id/comments", h.Opinions.AddComment, authed)
    movies.POST("/:id/rating", h.Opinions.Rate, authed)
    api.GET("/favorites", h.Opinions.ListFavorites, authed)
    api.POST("/comments/:id/reply", h.Opinions.Reply, authed)

    // Cart.
    cart := api.Group("/cart", authed)
    cart.GET("", h.Carts.Get)
    cart.POST("/items/:movie_id", h.Carts.AddItem)
    cart.DELETE("/items/:movie_id", h.Carts.RemoveItem)
    cart.DELETE("", h.Carts.Clear)
    api.GET("/admin/carts/:user_id", h.Carts.GetForUser, authed, adminOnly)

    // Orders and payments.
    orders := api.Group("/orders", authed)
    orders.POST("", h.Orders.Place)
    orders.GET("", h.Orders.List)
    orders.POST("/:id/cancel", h.Orders.Cancel)
    orders.POST("/:id/checkout", h.Payments.Checkout)

    api.GET("/payments", h.Payments.List, authed)
    api.GET("/admin/payments", h.Payments.ListAll, authed, adminOnly)

    // Provider callbacks authenticate by signature, not JWT.
    api.POST("/webhooks/stripe", h.Webhooks.Stripe)
}
