package model

// Order status lifecycle: PENDING on placement, PAID once the payment
// provider confirms, CANCELED by the user, a failed checkout or the
// stale-order sweep.  There are no other transitions.
const (
    OrderPending  = "PENDING"
    OrderPaid     = "PAID"
    OrderCanceled = "CANCELED"
)
