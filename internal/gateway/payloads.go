package gateway

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

// Payload is the decoded data.object of a gateway event. The set of
// implementations is closed; see Decode.
type Payload interface {
	Category() enums.GatewayEventCategory
	Refs() Refs
	Meta() map[string]string
}

type CheckoutSession struct {
	ID                   string                `json:"id"`
	Status               string                `json:"status"`
	PaymentStatus        string                `json:"payment_status"`
	Mode                 string                `json:"mode"`
	Currency             string                `json:"currency"`
	AmountSubtotal       *int64                `json:"amount_subtotal"`
	AmountTotal          *int64                `json:"amount_total"`
	TotalDetails         *TotalDetails         `json:"total_details"`
	ShippingCost         *ShippingCost         `json:"shipping_cost"`
	Customer             ExpandableID          `json:"customer"`
	CustomerEmail        string                `json:"customer_email"`
	CustomerDetails      *ContactDetails       `json:"customer_details"`
	ShippingDetails      *ContactDetails       `json:"shipping_details"`
	CollectedInformation *CollectedInformation `json:"collected_information"`
	PaymentIntent        ExpandableID          `json:"payment_intent"`
	PaymentLink          ExpandableID          `json:"payment_link"`
	Invoice              ExpandableID          `json:"invoice"`
	ClientReferenceID    string                `json:"client_reference_id"`
	LineItems            *LineItemList         `json:"line_items"`
	Metadata             map[string]string     `json:"metadata"`
	Created              int64                 `json:"created"`
	ExpiresAt            int64                 `json:"expires_at"`
}

type CollectedInformation struct {
	ShippingDetails *ContactDetails `json:"shipping_details"`
}

// Shipping returns the shipping block from whichever field the API version populated.
func (c *CheckoutSession) Shipping() *ContactDetails {
	if c.CollectedInformation != nil && c.CollectedInformation.ShippingDetails != nil {
		return c.CollectedInformation.ShippingDetails
	}
	return c.ShippingDetails
}

// Email prefers the collected customer details over the prefilled address.
func (c *CheckoutSession) Email() string {
	if c.CustomerDetails != nil && strings.TrimSpace(c.CustomerDetails.Email) != "" {
		return c.CustomerDetails.Email
	}
	return c.CustomerEmail
}

func (c *CheckoutSession) Category() enums.GatewayEventCategory { return enums.CategoryCheckoutSession }
func (c *CheckoutSession) Meta() map[string]string { return c.Metadata }

func (c *CheckoutSession) Refs() Refs {
	refs := refsFromMetadata(c.Metadata)
	refs.CheckoutSessionID = c.ID
	refs.PaymentIntentID = c.PaymentIntent.ID
	refs.GatewayInvoiceID = c.Invoice.ID
	refs.GatewayCustomerID = c.Customer.ID
	refs.GatewayPaymentLinkID = c.PaymentLink.ID
	refs.fillEmail(c.Email())
	if ref := strings.TrimSpace(c.ClientReferenceID); ref != "" {
		if _, err := uuid.Parse(ref); err == nil {
			if refs.OrderID == "" {
				refs.OrderID = ref
			}
		} else if refs.OrderNumber == "" {
			refs.OrderNumber = ref
		}
	}
	return refs
}

type PaymentIntent struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	Amount             int64             `json:"amount"`
	AmountReceived     int64             `json:"amount_received"`
	AmountCapturable   int64             `json:"amount_capturable"`
	Currency           string            `json:"currency"`
	Customer           ExpandableID      `json:"customer"`
	ReceiptEmail       string            `json:"receipt_email"`
	Description        string            `json:"description"`
	LatestCharge       ExpandableID      `json:"latest_charge"`
	LastPaymentError   *LastPaymentError `json:"last_payment_error"`
	Shipping           *ContactDetails   `json:"shipping"`
	Invoice            ExpandableID      `json:"invoice"`
	CancellationReason string            `json:"cancellation_reason"`
	CanceledAt         int64             `json:"canceled_at"`
	Metadata           map[string]string `json:"metadata"`
	Created            int64             `json:"created"`
}

func (p *PaymentIntent) Category() enums.GatewayEventCategory { return enums.CategoryPaymentIntent }
func (p *PaymentIntent) Meta() map[string]string { return p.Metadata }

func (p *PaymentIntent) Refs() Refs {
	refs := refsFromMetadata(p.Metadata)
	refs.PaymentIntentID = p.ID
	refs.ChargeID = p.LatestCharge.ID
	refs.GatewayInvoiceID = p.Invoice.ID
	refs.GatewayCustomerID = p.Customer.ID
	refs.fillEmail(p.ReceiptEmail)
	return refs
}

type Charge struct {
	ID                   string                `json:"id"`
	Status               string                `json:"status"`
	Amount               int64                 `json:"amount"`
	AmountCaptured       int64                 `json:"amount_captured"`
	AmountRefunded       int64                 `json:"amount_refunded"`
	Currency             string                `json:"currency"`
	Paid                 bool                  `json:"paid"`
	Captured             bool                  `json:"captured"`
	Refunded             bool                  `json:"refunded"`
	PaymentIntent        ExpandableID          `json:"payment_intent"`
	Customer             ExpandableID          `json:"customer"`
	Invoice              ExpandableID          `json:"invoice"`
	BillingDetails       *ContactDetails       `json:"billing_details"`
	Shipping             *ContactDetails       `json:"shipping"`
	ReceiptEmail         string                `json:"receipt_email"`
	ReceiptURL           string                `json:"receipt_url"`
	FailureCode          string                `json:"failure_code"`
	FailureMessage       string                `json:"failure_message"`
	PaymentMethodDetails *PaymentMethodDetails `json:"payment_method_details"`
	Metadata             map[string]string     `json:"metadata"`
	Created              int64                 `json:"created"`
}

// FullyRefunded reports whether refunds cover the whole charged amount.
func (c *Charge) FullyRefunded() bool {
	return c.Refunded || (c.Amount > 0 && c.AmountRefunded >= c.Amount)
}

func (c *Charge) Category() enums.GatewayEventCategory { return enums.CategoryCharge }
func (c *Charge) Meta() map[string]string { return c.Metadata }

func (c *Charge) Refs() Refs {
	refs := refsFromMetadata(c.Metadata)
	refs.ChargeID = c.ID
	refs.PaymentIntentID = c.PaymentIntent.ID
	refs.GatewayInvoiceID = c.Invoice.ID
	refs.GatewayCustomerID = c.Customer.ID
	refs.fillEmail(c.ReceiptEmail)
	if c.BillingDetails != nil {
		refs.fillEmail(c.BillingDetails.Email)
	}
	return refs
}

type Dispute struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Reason        string            `json:"reason"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Charge        ExpandableID      `json:"charge"`
	PaymentIntent ExpandableID      `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
	Created       int64             `json:"created"`
}

const (
	DisputeStatusWon  = "won"
	DisputeStatusLost = "lost"
)

func (d *Dispute) Category() enums.GatewayEventCategory { return enums.CategoryDispute }
func (d *Dispute) Meta() map[string]string { return d.Metadata }

func (d *Dispute) Refs() Refs {
	refs := refsFromMetadata(d.Metadata)
	refs.ChargeID = d.Charge.ID
	refs.PaymentIntentID = d.PaymentIntent.ID
	return refs
}

type InvoiceLine struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Quantity    int64  `json:"quantity"`
	Price       *Price `json:"price"`
}

type InvoiceLineList struct {
	Data []InvoiceLine `json:"data"`
}

type DiscountAmount struct {
	Amount int64 `json:"amount"`
}

type Invoice struct {
	ID                   string             `json:"id"`
	Number               string             `json:"number"`
	Status               string             `json:"status"`
	Currency             string             `json:"currency"`
	Subtotal             int64              `json:"subtotal"`
	Tax                  *int64             `json:"tax"`
	Total                int64              `json:"total"`
	AmountDue            int64              `json:"amount_due"`
	AmountPaid           int64              `json:"amount_paid"`
	AmountRemaining      int64              `json:"amount_remaining"`
	TotalDiscountAmounts []DiscountAmount   `json:"total_discount_amounts"`
	Customer             ExpandableID       `json:"customer"`
	CustomerEmail        string             `json:"customer_email"`
	CustomerName         string             `json:"customer_name"`
	CustomerPhone        string             `json:"customer_phone"`
	CustomerAddress      *Address           `json:"customer_address"`
	CustomerShipping     *ContactDetails    `json:"customer_shipping"`
	PaymentIntent        ExpandableID       `json:"payment_intent"`
	Charge               ExpandableID       `json:"charge"`
	Quote                ExpandableID       `json:"quote"`
	HostedInvoiceURL     string             `json:"hosted_invoice_url"`
	InvoicePDF           string             `json:"invoice_pdf"`
	DueDate              int64              `json:"due_date"`
	StatusTransitions    *StatusTransitions `json:"status_transitions"`
	Lines                *InvoiceLineList   `json:"lines"`
	LastFinalizationErr  *LastPaymentError  `json:"last_finalization_error"`
	Metadata             map[string]string  `json:"metadata"`
	Created              int64              `json:"created"`
}

// DiscountTotal sums the discount amounts applied to the invoice.
func (i *Invoice) DiscountTotal() int64 {
	var sum int64
	for _, d := range i.TotalDiscountAmounts {
		sum += d.Amount
	}
	return sum
}

func (i *Invoice) Category() enums.GatewayEventCategory { return enums.CategoryInvoice }
func (i *Invoice) Meta() map[string]string { return i.Metadata }

func (i *Invoice) Refs() Refs {
	refs := refsFromMetadata(i.Metadata)
	refs.GatewayInvoiceID = i.ID
	refs.PaymentIntentID = i.PaymentIntent.ID
	refs.ChargeID = i.Charge.ID
	refs.GatewayCustomerID = i.Customer.ID
	refs.GatewayQuoteID = i.Quote.ID
	if refs.InvoiceNumber == "" {
		refs.InvoiceNumber = i.Number
	}
	refs.fillEmail(i.CustomerEmail)
	return refs
}

type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Phone    string            `json:"phone"`
	Address  *Address          `json:"address"`
	Shipping *ContactDetails   `json:"shipping"`
	Deleted  bool              `json:"deleted"`
	Metadata map[string]string `json:"metadata"`
	Created  int64             `json:"created"`
}

func (c *Customer) Category() enums.GatewayEventCategory { return enums.CategoryCustomer }
func (c *Customer) Meta() map[string]string { return c.Metadata }

func (c *Customer) Refs() Refs {
	refs := refsFromMetadata(c.Metadata)
	refs.GatewayCustomerID = c.ID
	refs.Email = derive.NormalizeEmail(c.Email)
	return refs
}

type Quote struct {
	ID                string             `json:"id"`
	Number            string             `json:"number"`
	Status            string             `json:"status"`
	Currency          string             `json:"currency"`
	AmountSubtotal    int64              `json:"amount_subtotal"`
	AmountTotal       int64              `json:"amount_total"`
	Customer          ExpandableID       `json:"customer"`
	Invoice           ExpandableID       `json:"invoice"`
	ExpiresAt         int64              `json:"expires_at"`
	StatusTransitions *StatusTransitions `json:"status_transitions"`
	LineItems         *LineItemList      `json:"line_items"`
	Metadata          map[string]string  `json:"metadata"`
	Created           int64              `json:"created"`
}

func (q *Quote) Category() enums.GatewayEventCategory { return enums.CategoryQuote }
func (q *Quote) Meta() map[string]string { return q.Metadata }

func (q *Quote) Refs() Refs {
	refs := refsFromMetadata(q.Metadata)
	refs.GatewayQuoteID = q.ID
	refs.GatewayInvoiceID = q.Invoice.ID
	refs.GatewayCustomerID = q.Customer.ID
	return refs
}

type PaymentLink struct {
	ID       string            `json:"id"`
	URL      string            `json:"url"`
	Active   bool              `json:"active"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

func (p *PaymentLink) Category() enums.GatewayEventCategory { return enums.CategoryPaymentLink }
func (p *PaymentLink) Meta() map[string]string { return p.Metadata }

func (p *PaymentLink) Refs() Refs {
	refs := refsFromMetadata(p.Metadata)
	refs.GatewayPaymentLinkID = p.ID
	return refs
}

func (p *Product) Category() enums.GatewayEventCategory { return enums.CategoryProduct }
func (p *Product) Meta() map[string]string { return p.Metadata }
func (p *Product) Refs() Refs { return refsFromMetadata(p.Metadata) }

func (p *Price) Category() enums.GatewayEventCategory { return enums.CategoryPrice }
func (p *Price) Meta() map[string]string { return p.Metadata }
func (p *Price) Refs() Refs { return refsFromMetadata(p.Metadata) }
