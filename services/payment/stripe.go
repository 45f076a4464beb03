package payment

import (
	"context"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// CardIntent is a prepared Stripe payment the client finishes with the
// returned secret.
type CardIntent struct {
	IntentID     string
	ClientSecret string
}

// StripeGateway prepares card payments.
type StripeGateway interface {
	CreateIntent(ctx context.Context, amount float64, currency, appointmentID string) (*CardIntent, error)
}

// StripeClient talks to the Stripe API. The package-level stripe.Key must be
// set before use.
type StripeClient struct{}

// NewStripeClient sets the API key and returns a gateway.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// CreateIntent opens a PaymentIntent for the appointment. Amounts are sent in
// the currency's minor unit.
func (c *StripeClient) CreateIntent(ctx context.Context, amount float64, currency, appointmentID string) (*CardIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"appointmentId": appointmentID,
		},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe payment intent: %w", err)
	}
	return &CardIntent{IntentID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
