package stripewebhook

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gatewaysync/internal/cart"
	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/internal/financials"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/orders"
	"github.com/angelmondragon/gatewaysync/internal/status"
	"github.com/angelmondragon/gatewaysync/internal/upsert"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

func invoiceStatus(eventType enums.GatewayEventType) enums.PaymentStatus {
	switch eventType {
	case enums.EventInvoiceFinalized:
		return enums.PaymentStatusPending
	case enums.EventInvoicePaid:
		return enums.PaymentStatusPaid
	case enums.EventInvoicePaymentFailed, enums.EventInvoiceMarkedUncollectible:
		return enums.PaymentStatusFailed
	case enums.EventInvoiceVoided:
		return enums.PaymentStatusCancelled
	}
	return ""
}

// handleInvoice upserts the invoice, then pushes the same status through the
// linked order's state machine.
func (r *Router) handleInvoice(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	inv, ok := payload.(*gateway.Invoice)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	refs := inv.Refs()
	paymentStatus := invoiceStatus(ev.Type)

	orderMatch, err := r.resolver.ResolveOrder(ctx, enums.CategoryInvoice, refs)
	if err != nil {
		return nil, fmt.Errorf("resolve order: %w", err)
	}
	in := upsert.InvoiceInput{
		Event:             r.eventRef(ev),
		AllowCreate:       true,
		GatewayInvoiceID:  inv.ID,
		InvoiceNumber:     refs.InvoiceNumber,
		GatewayCustomerID: inv.Customer.ID,
		PaymentIntentID:   inv.PaymentIntent.ID,
		Email:             refs.Email,
		Status:            paymentStatus,
		HostedURL:         inv.HostedInvoiceURL,
		PDFURL:            inv.InvoicePDF,
		DueAt:             derive.FromUnixPtr(inv.DueDate),
		Metadata:          inv.Metadata,
		Note:              upsert.Note{Label: string(ev.Type)},
	}
	if orderMatch != nil {
		in.OrderID = &orderMatch.ID
		ctx = r.logg.WithOrderID(ctx, orderMatch.ID.String())
	}

	invoiceMatch, err := r.resolver.ResolveInvoice(ctx, refs, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("resolve invoice: %w", err)
	}
	if invoiceMatch != nil {
		in.ExistingID = &invoiceMatch.ID
	}

	lines, err := r.invoiceLines(ctx, inv)
	if err != nil {
		return nil, err
	}
	in.LineItems = lines.Items
	totals := r.financials.Reconcile(ctx, financials.Input{
		Gateway:  invoiceTotals(inv),
		Cart:     cartTotals(lines),
		Metadata: inv.Metadata,
		Currency: inv.Currency,
	})
	in.Totals = &totals

	if e := inv.LastFinalizationErr; e != nil {
		in.Diagnostics = &status.Diagnostics{Code: firstNonEmpty(e.DeclineCode, e.Code), Message: e.Message}
	}

	customer, err := r.upsertCustomer(ctx, refs, upsert.CustomerInput{
		Email:             inv.CustomerEmail,
		GatewayCustomerID: inv.Customer.ID,
		Name:              inv.CustomerName,
		Phone:             inv.CustomerPhone,
		Shipping:          inv.CustomerShipping.Snapshot(),
		Billing:           inv.CustomerAddress.Snapshot(inv.CustomerName, inv.CustomerPhone),
		SeenAt:            ev.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	if customer != nil {
		in.CustomerID = &customer.ID
	}

	res, err := r.store.UpsertInvoice(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("upsert invoice: %w", err)
	}
	if res.Skipped {
		return skipped("no matching invoice"), nil
	}
	ctx = r.logg.WithInvoiceID(ctx, res.Invoice.ID.String())
	if res.Created {
		r.logg.Info(ctx, "invoice created")
	}
	out := processed(nil, res.Invoice)
	if res.Outcome.Decision == status.DecisionRestrict && paymentStatus != "" {
		out.message = fmt.Sprintf("%s held at %s (%s)", paymentStatus, res.Invoice.Status, res.Outcome.Reason)
	}

	if orderMatch == nil || paymentStatus == "" {
		return out, nil
	}
	orderOut, err := r.upsertOrder(ctx, upsert.OrderInput{
		Event:         r.eventRef(ev),
		ExistingID:    &orderMatch.ID,
		IDs:           orders.TransactionIDs{PaymentIntentID: inv.PaymentIntent.ID, ChargeID: inv.Charge.ID},
		Status:        paymentStatus,
		CustomerID:    in.CustomerID,
		EnsureInvoice: true,
		Note:          upsert.Note{Label: "invoice " + string(paymentStatus)},
	})
	if err != nil {
		return nil, err
	}
	out.order = orderOut.order
	if out.message == "" {
		out.message = orderOut.message
	}
	return out, nil
}

// invoiceLines runs invoice lines through the cart normalizer so they get
// the same clamping and catalog enrichment as checkout carts.
func (r *Router) invoiceLines(ctx context.Context, inv *gateway.Invoice) (*cart.Result, error) {
	var items []gateway.LineItem
	if inv.Lines != nil {
		items = make([]gateway.LineItem, 0, len(inv.Lines.Data))
		for _, line := range inv.Lines.Data {
			amount := line.Amount
			currency := line.Currency
			if currency == "" {
				currency = inv.Currency
			}
			items = append(items, gateway.LineItem{
				ID:          line.ID,
				Description: line.Description,
				Quantity:    line.Quantity,
				AmountTotal: &amount,
				Currency:    currency,
				Price:       line.Price,
			})
		}
	}
	result, err := r.normalizer.Build(ctx, cart.Input{LineItems: items, Currency: inv.Currency})
	if err != nil {
		return nil, fmt.Errorf("build invoice lines: %w", err)
	}
	return result, nil
}

func invoiceTotals(inv *gateway.Invoice) financials.GatewayTotals {
	subtotal := derive.FromMinor(inv.Subtotal, inv.Currency)
	discount := derive.FromMinor(inv.DiscountTotal(), inv.Currency)
	total := derive.FromMinor(inv.Total, inv.Currency)
	return financials.GatewayTotals{
		Subtotal: &subtotal,
		Discount: &discount,
		Tax:      derive.FromMinorPtr(inv.Tax, inv.Currency),
		Total:    &total,
	}
}
