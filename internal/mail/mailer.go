// Package mail renders queued email events and delivers them over SMTP.
// In development the SMTP endpoint is MailHog, which captures everything
// it receives.
package mail

import (
    "fmt"

    gomail "gopkg.in/gomail.v2"

    "github.com/olexmazur/online-cinema/internal/config"
    "github.com/olexmazur/online-cinema/internal/queue"
)

// Mailer sends EmailEvent messages through an SMTP dialer.  It satisfies
// queue.Sender.
type Mailer struct {
    dialer *gomail.Dialer
    from   string
}

// New builds a Mailer from SMTP settings.
func New(cfg config.MailConfig) *Mailer {
    return &Mailer{
        dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
        from:   cfg.From,
    }
}

// Send renders the event into subject and body and delivers it.
func (m *Mailer) Send(ev queue.EmailEvent) error {
    subject, body := render(ev)

    msg := gomail.NewMessage()
    msg.SetHeader("From", m.from)
    msg.SetHeader("To", ev.To)
    msg.SetHeader("Subject", subject)
    msg.SetBody("text/html", body)

    return m.dialer.DialAndSend(msg)
}

// render maps an event kind to its subject line and HTML body.  Unknown
// kinds get a generic notification rather than an error; the queue must
// drain even if an old worker meets a new event kind.
func render(ev queue.EmailEvent) (subject, body string) {
    switch ev.Kind {
    case queue.EmailActivation:
        return "Activate your account",
            fmt.Sprintf("<p>Welcome! Use this token to activate your account:</p><p><b>%s</b></p><p>The token expires in 24 hours.</p>", ev.Token)
    case queue.EmailActivationDone:
        return "Your account is active",
            "<p>Your account has been activated. You can now log in and browse the catalog.</p>"
    case queue.EmailPasswordReset:
        return "Reset your password",
            fmt.Sprintf("<p>A password reset was requested for your account. Use this token to set a new password:</p><p><b>%s</b></p><p>If you did not request this, you can ignore this email.</p>", ev.Token)
    case queue.EmailPasswordResetDone:
        return "Your password was changed",
            "<p>Your password has been changed. If this was not you, contact support immediately.</p>"
    case queue.EmailCommentReply:
        return fmt.Sprintf("New reply to your comment on %q", ev.MovieTitle),
            fmt.Sprintf("<p>Someone replied to your comment on <b>%s</b>.</p><p>Your comment: %s</p><p>Reply: %s</p>",
                ev.MovieTitle, ev.ParentExcerpt, ev.ReplyExcerpt)
    case queue.EmailOrderPaid:
        return fmt.Sprintf("Payment received for order #%d", ev.OrderID),
            fmt.Sprintf("<p>Your payment of $%.2f for order #%d was successful. Enjoy your movies!</p>",
                float64(ev.AmountCents)/100, ev.OrderID)
    }
    return "Notification", "<p>You have a new notification.</p>"
}
