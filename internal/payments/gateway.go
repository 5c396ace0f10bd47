// Package payments wraps the external payment provider behind a small
// gateway interface so handlers and tests never touch the Stripe SDK
// directly.
package payments

import (
    "context"
    "strconv"

    stripe "github.com/stripe/stripe-go/v78"
    "github.com/stripe/stripe-go/v78/checkout/session"
)

// CheckoutSession is what the API returns to the client after creating a
// provider checkout: the session id is stored on the order, the URL is
// where the client completes the payment.
type CheckoutSession struct {
    ID  string `json:"session_id"`
    URL string `json:"checkout_url"`
}

// Gateway creates hosted checkout sessions for orders.
type Gateway interface {
    CreateCheckout(ctx context.Context, orderID uint64, description string, amountCents int64) (*CheckoutSession, error)
}

// StripeGateway implements Gateway on Stripe Checkout.
type StripeGateway struct {
    successURL string
    cancelURL  string
}

// NewStripe configures the global Stripe client key and returns a
// gateway using the given redirect URLs.
func NewStripe(secretKey, successURL, cancelURL string) *StripeGateway {
    stripe.Key = secretKey
    return &StripeGateway{successURL: successURL, cancelURL: cancelURL}
}

// CreateCheckout opens a one-off payment session for the whole order.
// The order total is charged as a single line item; per-movie amounts
// are recorded on our side in order_items.
func (g *StripeGateway) CreateCheckout(ctx context.Context, orderID uint64, description string, amountCents int64) (*CheckoutSession, error) {
    params := &stripe.CheckoutSessionParams{
        Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
        SuccessURL:        stripe.String(g.successURL),
        CancelURL:         stripe.String(g.cancelURL),
        ClientReferenceID: stripe.String(strconv.FormatUint(orderID, 10)),
        LineItems: []*stripe.CheckoutSessionLineItemParams{
            {
                Quantity: stripe.Int64(1),
                PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
                    Currency:   stripe.String(string(stripe.CurrencyUSD)),
                    UnitAmount: stripe.Int64(amountCents),
                    ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
                        Name: stripe.String(description),
                    },
                },
            },
        },
    }
    params.Context = ctx

    s, err := session.New(params)
    if err != nil {
        return nil, err
    }
    return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}
