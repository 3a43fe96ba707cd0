package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
)

// PaymentIntent fetches a payment intent with its latest charge expanded.
func (c *Client) PaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	if !c.CanEnrich() {
		return nil, ErrAPIKeyMissing
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	pi, err := c.api.paymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", id, err)
	}
	return pi, nil
}

func (c *Client) Charge(ctx context.Context, id string) (*stripe.Charge, error) {
	if !c.CanEnrich() {
		return nil, ErrAPIKeyMissing
	}
	params := &stripe.ChargeParams{}
	params.Context = ctx
	ch, err := c.api.charges.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get charge %s: %w", id, err)
	}
	return ch, nil
}

// CheckoutLineItems pages through every line item of a checkout session,
// expanding each price's product.
func (c *Client) CheckoutLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
	if !c.CanEnrich() {
		return nil, ErrAPIKeyMissing
	}
	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
	params.Context = ctx
	params.AddExpand("data.price.product")

	var items []*stripe.LineItem
	iter := c.api.sessions.ListLineItems(params)
	for iter.Next() {
		items = append(items, iter.LineItem())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list line items for %s: %w", sessionID, err)
	}
	return items, nil
}
