package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// PaymentDetails is the display and diagnostic subset of a payment.
type PaymentDetails struct {
	ChargeID       string
	CardBrand      string
	CardLast4      string
	ReceiptURL     string
	FailureCode    string
	FailureMessage string
}

// Details extracts card display fields and failure diagnostics from a charge.
func (c *Charge) Details() PaymentDetails {
	out := PaymentDetails{
		ChargeID:       c.ID,
		ReceiptURL:     c.ReceiptURL,
		FailureCode:    c.FailureCode,
		FailureMessage: c.FailureMessage,
	}
	if c.PaymentMethodDetails != nil && c.PaymentMethodDetails.Card != nil {
		out.CardBrand = c.PaymentMethodDetails.Card.Brand
		out.CardLast4 = c.PaymentMethodDetails.Card.Last4
	}
	return out
}

// Details merges the intent's last error with its expanded latest charge.
func (p *PaymentIntent) Details() PaymentDetails {
	var out PaymentDetails
	var latest Charge
	if p.LatestCharge.Expanded(&latest) {
		out = latest.Details()
	} else {
		out.ChargeID = p.LatestCharge.ID
	}
	if p.LastPaymentError != nil {
		code := p.LastPaymentError.DeclineCode
		if code == "" {
			code = p.LastPaymentError.Code
		}
		if code != "" {
			out.FailureCode = code
		}
		if msg := strings.TrimSpace(p.LastPaymentError.Message); msg != "" {
			out.FailureMessage = msg
		}
	}
	return out
}

// PaymentIntentFromStripe re-encodes a fetched intent into the local variant.
func PaymentIntentFromStripe(pi *stripe.PaymentIntent) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := reencode(pi, &out); err != nil {
		return nil, fmt.Errorf("convert payment intent: %w", err)
	}
	return &out, nil
}

// ChargeFromStripe re-encodes a fetched charge into the local variant.
func ChargeFromStripe(ch *stripe.Charge) (*Charge, error) {
	var out Charge
	if err := reencode(ch, &out); err != nil {
		return nil, fmt.Errorf("convert charge: %w", err)
	}
	return &out, nil
}

// LineItemsFromStripe re-encodes fetched checkout line items.
func LineItemsFromStripe(items []*stripe.LineItem) ([]LineItem, error) {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		var li LineItem
		if err := reencode(item, &li); err != nil {
			return nil, fmt.Errorf("convert line item %s: %w", item.ID, err)
		}
		out = append(out, li)
	}
	return out, nil
}

func reencode(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
