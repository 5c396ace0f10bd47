package model

// Payment statuses.  SUCCESSFUL is written by the webhook on a completed
// checkout; CANCELLED and REFUNDED exist for provider-side outcomes.
const (
    PaymentSuccessful = "SUCCESSFUL"
    PaymentCancelled  = "CANCELLED"
    PaymentRefunded   = "REFUNDED"
)
