package gateway

import (
	"github.com/angelmondragon/gatewaysync/internal/derive"
)

// Refs is the uniform bag of identifiers an event carries. Application ids
// are raw metadata values; the resolver decides whether they parse.
type Refs struct {
	OrderID    string
	InvoiceID  string
	CustomerID string
	QuoteID    string

	OrderNumber   string
	InvoiceNumber string

	CheckoutSessionID    string
	PaymentIntentID      string
	ChargeID             string
	GatewayInvoiceID     string
	GatewayCustomerID    string
	GatewayQuoteID       string
	GatewayPaymentLinkID string

	Email string
}

// HasOrderTransactionIDs reports whether any order-scoped gateway id is present.
func (r Refs) HasOrderTransactionIDs() bool {
	return r.CheckoutSessionID != "" || r.PaymentIntentID != "" || r.ChargeID != ""
}

func (r *Refs) fillEmail(candidate string) {
	if r.Email != "" {
		return
	}
	r.Email = derive.NormalizeEmail(candidate)
}

func refsFromMetadata(meta map[string]string) Refs {
	var refs Refs
	refs.OrderID, _ = derive.Lookup(meta, derive.FieldOrderID)
	refs.InvoiceID, _ = derive.Lookup(meta, derive.FieldInvoiceID)
	refs.CustomerID, _ = derive.Lookup(meta, derive.FieldCustomerID)
	refs.QuoteID, _ = derive.Lookup(meta, derive.FieldQuoteID)
	refs.OrderNumber, _ = derive.Lookup(meta, derive.FieldOrderNumber)
	refs.InvoiceNumber, _ = derive.Lookup(meta, derive.FieldInvoiceNumber)
	if email, ok := derive.Lookup(meta, derive.FieldCustomerEmail); ok {
		refs.Email = derive.NormalizeEmail(email)
	}
	return refs
}
