package main // Scheduler entry point

import (
    "context"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/robfig/cron/v3"

    "github.com/olexmazur/online-cinema/internal/config"
    "github.com/olexmazur/online-cinema/internal/database"
    "github.com/olexmazur/online-cinema/internal/repository"
)

// How long a PENDING order may sit before it is considered abandoned.
const stalePendingAge = 24 * time.Hour

// The scheduler runs the periodic maintenance jobs: purging expired
// one-time tokens and expiring orders whose checkout was never
// completed.  One daily run at 01:01 keeps the tables small without
// competing with daytime traffic.
func main() {
    _ = godotenv.Load()

    cfg := config.Load()
    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    tokens := repository.NewTokenRepo(db)
    orders := repository.NewOrderRepo(db)

    c := cron.New()
    _, err = c.AddFunc("1 1 * * *", func() {
        ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
        defer cancel()

        if n, err := tokens.DeleteExpired(ctx); err != nil {
            log.Printf("scheduler: token cleanup failed: %v", err)
        } else {
            log.Printf("scheduler: removed %d expired tokens", n)
        }
        if n, err := orders.ExpireStalePending(ctx, stalePendingAge); err != nil {
            log.Printf("scheduler: order expiry failed: %v", err)
        } else {
            log.Printf("scheduler: canceled %d stale pending orders", n)
        }
    })
    if err != nil {
        log.Fatalf("scheduler: bad cron spec: %v", err)
    }

    c.Start()
    log.Printf("scheduler started, daily run at 01:01")

    sig := make(chan os.Signal, 1)
    signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
    <-sig

    // Let a running job finish before exiting.
    <-c.Stop().Done()
}
