package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // .env loader for local development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/olexmazur/online-cinema/internal/config"     // Internal config loader
    "github.com/olexmazur/online-cinema/internal/database"   // MySQL pool
    "github.com/olexmazur/online-cinema/internal/handler"    // HTTP handlers
    "github.com/olexmazur/online-cinema/internal/payments"   // Stripe gateway
    "github.com/olexmazur/online-cinema/internal/repository" // DB repositories
    "github.com/olexmazur/online-cinema/internal/router"     // Route registration
)

func main() {
    _ = godotenv.Load() // .env is optional; real deployments use the environment

    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis powers the rate limiter and the response cache.  Both
    // middlewares degrade to pass-through when it is unreachable.
    rdb := config.NewRedisClient()

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    movies := repository.NewMovieRepo(db)
    opinions := repository.NewOpinionRepo(db)
    carts := repository.NewCartRepo(db)
    orders := repository.NewOrderRepo(db)
    pays := repository.NewPaymentRepo(db)

    gateway := payments.NewStripe(cfg.StripeSecretKey, cfg.PaymentSuccessURL, cfg.PaymentCancelURL)

    e := echo.New()
    router.Register(e, router.Handlers{
        Auth:     handler.NewAuthHandler(cfg, users, tokens),
        Account:  handler.NewAccountHandler(cfg, users, tokens),
        Movies:   handler.NewMovieHandler(movies),
        Opinions: handler.NewOpinionHandler(opinions, movies, users),
        Carts:    handler.NewCartHandler(carts),
        Orders:   handler.NewOrderHandler(orders),
        Payments: handler.NewPaymentHandler(orders, pays, gateway),
        Webhooks: handler.NewWebhookHandler(pays, orders, users, cfg.StripeWebhookSecret),
    }, cfg, rdb)

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err) // Log and exit if server fails
    }
}
