package stripewebhook

import (
	"context"

	"github.com/angelmondragon/gatewaysync/internal/gateway"
	pkgstripe "github.com/angelmondragon/gatewaysync/pkg/stripe"
)

// Fetcher loads gateway objects an event only references by id.
type Fetcher interface {
	PaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error)
	Charge(ctx context.Context, id string) (*gateway.Charge, error)
	CheckoutLineItems(ctx context.Context, sessionID string) ([]gateway.LineItem, error)
}

type stripeFetcher struct {
	client *pkgstripe.Client
}

// NewStripeFetcher adapts the API client. It returns nil when the client has
// no secret key, which disables enrichment.
func NewStripeFetcher(client *pkgstripe.Client) Fetcher {
	if !client.CanEnrich() {
		return nil
	}
	return &stripeFetcher{client: client}
}

func (f *stripeFetcher) PaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error) {
	pi, err := f.client.PaymentIntent(ctx, id)
	if err != nil {
		return nil, err
	}
	return gateway.PaymentIntentFromStripe(pi)
}

func (f *stripeFetcher) Charge(ctx context.Context, id string) (*gateway.Charge, error) {
	ch, err := f.client.Charge(ctx, id)
	if err != nil {
		return nil, err
	}
	return gateway.ChargeFromStripe(ch)
}

func (f *stripeFetcher) CheckoutLineItems(ctx context.Context, sessionID string) ([]gateway.LineItem, error) {
	items, err := f.client.CheckoutLineItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return gateway.LineItemsFromStripe(items)
}
