package stripewebhook

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gatewaysync/internal/cart"
	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/internal/financials"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/orders"
	"github.com/angelmondragon/gatewaysync/internal/upsert"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

const (
	sessionPaymentPaid       = "paid"
	sessionNoPaymentRequired = "no_payment_required"
)

// checkoutStatus maps a session event onto the order payment status.
func checkoutStatus(eventType enums.GatewayEventType, session *gateway.CheckoutSession) enums.PaymentStatus {
	switch eventType {
	case enums.EventCheckoutSessionCompleted:
		switch session.PaymentStatus {
		case sessionPaymentPaid, sessionNoPaymentRequired:
			return enums.PaymentStatusPaid
		default:
			return enums.PaymentStatusPending
		}
	case enums.EventCheckoutSessionAsyncPaymentSucceeded:
		return enums.PaymentStatusPaid
	case enums.EventCheckoutSessionAsyncPaymentFailed:
		return enums.PaymentStatusFailed
	case enums.EventCheckoutSessionExpired:
		return enums.PaymentStatusExpired
	}
	return ""
}

func (r *Router) handleCheckoutSession(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	session, ok := payload.(*gateway.CheckoutSession)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	refs := session.Refs()
	paymentStatus := checkoutStatus(ev.Type, session)

	match, err := r.resolver.ResolveOrder(ctx, enums.CategoryCheckoutSession, refs)
	if err != nil {
		return nil, fmt.Errorf("resolve order: %w", err)
	}
	// an expired session only updates an order the storefront already created
	allowCreate := ev.Type != enums.EventCheckoutSessionExpired
	if match == nil && !allowCreate {
		return skipped("no order for expired session %s", session.ID), nil
	}

	var lineItems []gateway.LineItem
	if session.LineItems != nil {
		lineItems = session.LineItems.Data
	}
	cartResult, err := r.normalizer.Build(ctx, cart.Input{
		LineItems: lineItems,
		Fetch:     r.lineItemFetch(session.ID),
		Metadata:  session.Metadata,
		Currency:  session.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("build cart: %w", err)
	}
	totals := r.financials.Reconcile(ctx, financials.Input{
		Gateway:  sessionTotals(session),
		Cart:     cartTotals(cartResult),
		Metadata: session.Metadata,
		Currency: session.Currency,
	})

	contact := sessionContact(session)
	shipping := session.Shipping().Snapshot()
	billing := session.CustomerDetails.Snapshot()

	customer, err := r.upsertCustomer(ctx, refs, upsert.CustomerInput{
		Email:             contact.Email,
		GatewayCustomerID: session.Customer.ID,
		Name:              contact.Name,
		Phone:             contact.Phone,
		Shipping:          shipping,
		Billing:           billing,
		SeenAt:            ev.OccurredAt,
	})
	if err != nil {
		return nil, err
	}

	in := upsert.OrderInput{
		Event:       r.eventRef(ev),
		AllowCreate: allowCreate,
		IDs: orders.TransactionIDs{
			CheckoutSessionID: session.ID,
			PaymentIntentID:   session.PaymentIntent.ID,
		},
		OrderNumber:       refs.OrderNumber,
		Status:            paymentStatus,
		Totals:            &totals,
		Cart:              cartResult,
		Contact:           contact,
		ShippingAddress:   shipping,
		BillingAddress:    billing,
		Payment:           r.intentDetails(ctx, session.PaymentIntent, paymentStatus),
		GatewayCustomerID: session.Customer.ID,
		PaymentLinkID:     session.PaymentLink.ID,
		Metadata:          session.Metadata,
		EnsureInvoice:     paymentStatus == enums.PaymentStatusPaid,
		InvoiceNumber:     refs.InvoiceNumber,
		Note:              upsert.Note{Label: "checkout " + string(paymentStatus)},
	}
	if match != nil {
		in.ExistingID = &match.ID
	}
	if customer != nil {
		in.CustomerID = &customer.ID
	}
	if quoteID := r.resolveQuoteID(ctx, refs); quoteID != nil {
		in.QuoteID = quoteID
	}
	return r.upsertOrder(ctx, in)
}

// lineItemFetch returns nil when enrichment is disabled.
func (r *Router) lineItemFetch(sessionID string) cart.LineItemFetcher {
	if r.fetcher == nil || sessionID == "" {
		return nil
	}
	return func(ctx context.Context) ([]gateway.LineItem, error) {
		return r.fetcher.CheckoutLineItems(ctx, sessionID)
	}
}

func sessionTotals(session *gateway.CheckoutSession) financials.GatewayTotals {
	currency := session.Currency
	totals := financials.GatewayTotals{
		Subtotal: derive.FromMinorPtr(session.AmountSubtotal, currency),
		Total:    derive.FromMinorPtr(session.AmountTotal, currency),
	}
	if session.TotalDetails != nil {
		discount := derive.FromMinor(session.TotalDetails.AmountDiscount, currency)
		tax := derive.FromMinor(session.TotalDetails.AmountTax, currency)
		shipping := derive.FromMinor(session.TotalDetails.AmountShipping, currency)
		totals.Discount = &discount
		totals.Tax = &tax
		totals.Shipping = &shipping
	} else if session.ShippingCost != nil {
		shipping := derive.FromMinor(session.ShippingCost.AmountTotal, currency)
		totals.Shipping = &shipping
	}
	return totals
}

func cartTotals(result *cart.Result) financials.CartTotals {
	if result.IsEmpty() {
		return financials.CartTotals{}
	}
	subtotal := result.Subtotal
	return financials.CartTotals{Subtotal: &subtotal}
}

func sessionContact(session *gateway.CheckoutSession) upsert.Contact {
	contact := upsert.Contact{Email: session.Email()}
	for _, details := range []*gateway.ContactDetails{session.CustomerDetails, session.Shipping()} {
		if details == nil {
			continue
		}
		if contact.Name == "" {
			contact.Name = details.Name
		}
		if contact.Phone == "" {
			contact.Phone = details.Phone
		}
	}
	if contact.Name == "" {
		contact.Name, _ = derive.Lookup(session.Metadata, derive.FieldCustomerName)
	}
	if contact.Phone == "" {
		contact.Phone, _ = derive.Lookup(session.Metadata, derive.FieldCustomerPhone)
	}
	return contact
}
