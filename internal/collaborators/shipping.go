package collaborators

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
)

// ShippingLabelClient pushes a paid order to the label provider.
type ShippingLabelClient struct {
	endpoint *endpoint
}

func NewShippingLabelClient(baseURL string, opts ...Option) (*ShippingLabelClient, error) {
	e, err := newEndpoint("shipping label", baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &ShippingLabelClient{endpoint: e}, nil
}

type orderRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
}

func (c *ShippingLabelClient) Sync(ctx context.Context, orderID uuid.UUID) error {
	return c.endpoint.do(ctx, http.MethodPost, "", orderRequest{OrderID: orderID.String()}, nil)
}

// ShippingRateClient quotes a rate the storefront selected at checkout.
type ShippingRateClient struct {
	endpoint *endpoint
}

func NewShippingRateClient(baseURL string, opts ...Option) (*ShippingRateClient, error) {
	e, err := newEndpoint("shipping rate", baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &ShippingRateClient{endpoint: e}, nil
}

type rateResponse struct {
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
	Currency string           `json:"currency"`
}

// Rate returns the quoted amount in major units.
func (c *ShippingRateClient) Rate(ctx context.Context, rateID string) (decimal.Decimal, error) {
	rateID = strings.TrimSpace(rateID)
	if rateID == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "rate id is required")
	}
	var resp rateResponse
	if err := c.endpoint.do(ctx, http.MethodGet, url.PathEscape(rateID), nil, &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.Amount.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "shipping rate is negative")
	}
	return *resp.Amount, nil
}
