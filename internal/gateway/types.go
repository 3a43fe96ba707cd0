package gateway

import "github.com/angelmondragon/gatewaysync/pkg/types"

// Address is the gateway's postal address shape.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// ContactDetails covers customer_details, billing_details and shipping blocks.
type ContactDetails struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Address *Address `json:"address"`
}

// Snapshot converts the address into the stored shape.
func (a *Address) Snapshot(name, phone string) *types.Address {
	if a == nil {
		return nil
	}
	out := &types.Address{
		Name:       name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      phone,
	}
	if out.IsEmpty() {
		return nil
	}
	return out
}

// Snapshot returns the contact's address, or nil when it carries none.
func (c *ContactDetails) Snapshot() *types.Address {
	if c == nil {
		return nil
	}
	return c.Address.Snapshot(c.Name, c.Phone)
}

type LastPaymentError struct {
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
	Type        string `json:"type"`
}

type CardDetails struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

type PaymentMethodDetails struct {
	Type string       `json:"type"`
	Card *CardDetails `json:"card"`
}

type Product struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Active       bool              `json:"active"`
	Deleted      bool              `json:"deleted"`
	DefaultPrice ExpandableID      `json:"default_price"`
	Metadata     map[string]string `json:"metadata"`
}

type Recurring struct {
	Interval string `json:"interval"`
}

type Price struct {
	ID                string            `json:"id"`
	Product           ExpandableID      `json:"product"`
	UnitAmount        *int64            `json:"unit_amount"`
	UnitAmountDecimal string            `json:"unit_amount_decimal"`
	Currency          string            `json:"currency"`
	Active            bool              `json:"active"`
	Deleted           bool              `json:"deleted"`
	Recurring         *Recurring        `json:"recurring"`
	Metadata          map[string]string `json:"metadata"`
}

// LineItem is a checkout or quote line item. Amounts are minor units.
type LineItem struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity"`
	AmountSubtotal *int64 `json:"amount_subtotal"`
	AmountTotal    *int64 `json:"amount_total"`
	AmountTax      *int64 `json:"amount_tax"`
	AmountDiscount *int64 `json:"amount_discount"`
	Currency       string `json:"currency"`
	Price          *Price `json:"price"`
}

// ProductDetails returns the expanded product attached to the line item's price.
func (l LineItem) ProductDetails() (*Product, bool) {
	if l.Price == nil {
		return nil, false
	}
	var product Product
	if !l.Price.Product.Expanded(&product) {
		return nil, false
	}
	return &product, true
}

type LineItemList struct {
	Data []LineItem `json:"data"`
}

type TotalDetails struct {
	AmountDiscount int64 `json:"amount_discount"`
	AmountShipping int64 `json:"amount_shipping"`
	AmountTax      int64 `json:"amount_tax"`
}

type ShippingCost struct {
	AmountTotal  int64        `json:"amount_total"`
	ShippingRate ExpandableID `json:"shipping_rate"`
}

type StatusTransitions struct {
	AcceptedAt  int64 `json:"accepted_at"`
	CanceledAt  int64 `json:"canceled_at"`
	FinalizedAt int64 `json:"finalized_at"`
	PaidAt      int64 `json:"paid_at"`
	VoidedAt    int64 `json:"voided_at"`
}
