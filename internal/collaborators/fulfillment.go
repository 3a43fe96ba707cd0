package collaborators

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// FulfillmentClient triggers the downstream fulfillment function.
type FulfillmentClient struct {
	endpoint *endpoint
}

func NewFulfillmentClient(baseURL string, opts ...Option) (*FulfillmentClient, error) {
	e, err := newEndpoint("fulfillment", baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &FulfillmentClient{endpoint: e}, nil
}

// Trigger posts {"orderId"} to the base URL.
func (c *FulfillmentClient) Trigger(ctx context.Context, orderID uuid.UUID) error {
	return c.endpoint.do(ctx, http.MethodPost, "", orderRequest{OrderID: orderID.String()}, nil)
}
