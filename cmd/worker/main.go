package main // Email worker entry point

import (
    "log"

    "github.com/joho/godotenv"

    "github.com/olexmazur/online-cinema/internal/config"
    "github.com/olexmazur/online-cinema/internal/mail"
    "github.com/olexmazur/online-cinema/internal/queue"
)

// The worker drains the email queue and delivers through SMTP.  It
// holds no HTTP surface; scaling it is just running more replicas.
func main() {
    _ = godotenv.Load()

    mailer := mail.New(config.LoadMail())

    log.Printf("email worker consuming %s", queue.EmailQueueName)
    if err := queue.StartEmailConsumer(mailer); err != nil {
        log.Fatalf("consumer stopped: %v", err)
    }
}
