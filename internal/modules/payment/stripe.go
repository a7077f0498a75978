package payment

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway reads payment intents and checkout sessions from Stripe.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, backends)}
}

func (g *StripeGateway) GetPaymentIntent(ctx context.Context, id string) (*Record, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, err
	}
	return &Record{
		Reference:   pi.ID,
		Kind:        KindPaymentIntent,
		Status:      string(pi.Status),
		AmountMinor: pi.Amount,
		Currency:    string(pi.Currency),
		Metadata:    pi.Metadata,
	}, nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, id string) (*Record, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, err
	}
	return &Record{
		Reference:   cs.ID,
		Kind:        KindCheckoutSession,
		Status:      string(cs.PaymentStatus),
		AmountMinor: cs.AmountTotal,
		Currency:    string(cs.Currency),
		Metadata:    cs.Metadata,
	}, nil
}
