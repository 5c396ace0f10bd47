// Package queue defines message payloads exchanged over the message broker.
package queue

// Kinds of outbound emails carried over the broker.  The API publishes
// them; the worker binary renders and sends the actual messages.
const (
    EmailActivation        = "account.activation"
    EmailActivationDone    = "account.activated"
    EmailPasswordReset     = "account.password_reset"
    EmailPasswordResetDone = "account.password_changed"
    EmailCommentReply      = "comment.reply"
    EmailOrderPaid         = "order.paid"
)

// EmailEvent is published whenever the API wants an email sent.  It
// carries everything the worker needs to render the message without
// querying the primary database.  Fields beyond Kind and To are
// populated per kind.
type EmailEvent struct {
    Kind string `json:"kind"`
    To   string `json:"to"`

    // Activation and password-reset emails.
    Token string `json:"token,omitempty"`

    // Comment-reply notifications.
    MovieTitle    string `json:"movie_title,omitempty"`
    ParentExcerpt string `json:"parent_excerpt,omitempty"`
    ReplyExcerpt  string `json:"reply_excerpt,omitempty"`

    // Payment confirmations.
    OrderID     uint64 `json:"order_id,omitempty"`
    AmountCents int64  `json:"amount_cents,omitempty"`

    QueuedAt string `json:"queued_at"`
}
