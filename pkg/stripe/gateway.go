package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
)

// CheckoutSessions is the part of the Checkout Sessions API the backend uses.
type CheckoutSessions interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	LineItems(ctx context.Context, id string) ([]*stripe.LineItem, error)
	ListCompleted(ctx context.Context, limit int64) ([]*stripe.CheckoutSession, error)
}

// PaymentIntents captures or releases manual-capture pre-order authorizations.
type PaymentIntents interface {
	Capture(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	Cancel(ctx context.Context, id string, reason string) (*stripe.PaymentIntent, error)
}

// NewCheckoutSessions returns nil for a nil client so callers can treat
// Stripe as unconfigured.
func NewCheckoutSessions(c *Client) CheckoutSessions {
	if c == nil {
		return nil
	}
	return sessionGateway{c}
}

func NewPaymentIntents(c *Client) PaymentIntents {
	if c == nil {
		return nil
	}
	return intentGateway{c}
}

type sessionGateway struct{ c *Client }

func (g sessionGateway) Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		params = &stripe.CheckoutSessionParams{}
	}
	params.Context = ctx
	return g.c.sessions.New(params)
}

func (g sessionGateway) Get(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}}
	params.AddExpand("payment_intent")
	return g.c.sessions.Get(id, params)
}

func (g sessionGateway) LineItems(ctx context.Context, id string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(id)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)

	it := g.c.sessions.ListLineItems(params)
	var out []*stripe.LineItem
	for it.Next() {
		out = append(out, it.LineItem())
	}
	return out, it.Err()
}

// ListCompleted pages newest first and stops once limit sessions are read.
func (g sessionGateway) ListCompleted(ctx context.Context, limit int64) ([]*stripe.CheckoutSession, error) {
	if limit <= 0 {
		return nil, nil
	}
	params := &stripe.CheckoutSessionListParams{Status: stripe.String(string(stripe.CheckoutSessionStatusComplete))}
	params.Context = ctx
	params.Limit = stripe.Int64(min(limit, 100))
	params.AddExpand("data.line_items")

	it := g.c.sessions.List(params)
	out := make([]*stripe.CheckoutSession, 0, limit)
	for int64(len(out)) < limit && it.Next() {
		out = append(out, it.CheckoutSession())
	}
	return out, it.Err()
}

type intentGateway struct{ c *Client }

func (g intentGateway) Capture(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	return g.c.intents.Capture(id, &stripe.PaymentIntentCaptureParams{Params: stripe.Params{Context: ctx}})
}

func (g intentGateway) Cancel(ctx context.Context, id string, reason string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{Params: stripe.Params{Context: ctx}}
	if reason != "" {
		params.CancellationReason = stripe.String(reason)
	}
	return g.c.intents.Cancel(id, params)
}
