package collaborators

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// PackingSlipClient asks the document service to render a packing slip.
type PackingSlipClient struct {
	endpoint *endpoint
}

func NewPackingSlipClient(baseURL string, opts ...Option) (*PackingSlipClient, error) {
	e, err := newEndpoint("packing slip", baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &PackingSlipClient{endpoint: e}, nil
}

type packingSlipRequest struct {
	OrderID   string `json:"orderId" validate:"required,uuid"`
	InvoiceID string `json:"invoiceId,omitempty" validate:"omitempty,uuid"`
}

type packingSlipResponse struct {
	URL string `json:"url" validate:"required,url"`
}

// Generate returns the URL of the rendered slip. invoiceID may be uuid.Nil.
func (c *PackingSlipClient) Generate(ctx context.Context, orderID, invoiceID uuid.UUID) (string, error) {
	req := packingSlipRequest{OrderID: orderID.String()}
	if invoiceID != uuid.Nil {
		req.InvoiceID = invoiceID.String()
	}
	var resp packingSlipResponse
	if err := c.endpoint.do(ctx, http.MethodPost, "", req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}
