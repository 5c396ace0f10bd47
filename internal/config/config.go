package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing

    // Activation and password reset tokens are one-time credentials sent by
    // email.  Their lifetimes are configured separately from the JWT pair.
    ActivationTTLHours int // activation token time-to-live in hours
    ResetTTLHours      int // password reset token time-to-live in hours

    // Stripe settings.  The secret key authenticates API calls, the webhook
    // secret verifies the Stripe-Signature header on incoming events.
    StripeSecretKey     string
    StripeWebhookSecret string
    PaymentSuccessURL   string // where Stripe redirects after a successful checkout
    PaymentCancelURL    string // where Stripe redirects after a cancelled checkout
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),      // environment (dev/test/prod)
        Port:           must("APP_PORT"),     // port to bind the HTTP server
        DBUser:         must("DB_USER"),      // database user
        DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:         must("DB_HOST"),      // database host
        DBPort:         must("DB_PORT"),      // database port
        DBName:         must("DB_NAME"),      // database name
        JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
        BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

        ActivationTTLHours: envIntDefault("ACTIVATION_TOKEN_TTL_HOURS", 24),
        ResetTTLHours:      envIntDefault("RESET_TOKEN_TTL_HOURS", 1),

        StripeSecretKey:     must("STRIPE_SECRET_KEY"),
        StripeWebhookSecret: must("STRIPE_WEBHOOK_SECRET"),
        PaymentSuccessURL:   envDefault("PAYMENT_SUCCESS_URL", "http://localhost:8000/payments/success"),
        PaymentCancelURL:    envDefault("PAYMENT_CANCEL_URL", "http://localhost:8000/payments/cancel"),
    }
}

// MailConfig groups SMTP delivery settings used by the background worker.
// In development these point at MailHog, which captures outgoing mail.
type MailConfig struct {
    Host string
    Port int
    User string
    Pass string
    From string
}

// LoadMail reads SMTP settings.  Only sane MailHog defaults are assumed so
// the worker can start in development without any configuration.
func LoadMail() MailConfig {
    return MailConfig{
        Host: envDefault("EMAIL_HOST", "localhost"),
        Port: envIntDefault("EMAIL_PORT", 1025),
        User: os.Getenv("EMAIL_HOST_USER"),
        Pass: os.Getenv("EMAIL_HOST_PASSWORD"),
        From: envDefault("EMAIL_FROM", "noreply@cinema.local"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

func envDefault(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func envIntDefault(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        return def
    }
    return n
}
