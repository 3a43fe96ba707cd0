package stripewebhook

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/gatewaysync/internal/cart"
	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/internal/financials"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/upsert"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

func (r *Router) handleCustomer(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	customer, ok := payload.(*gateway.Customer)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	if customer.Deleted {
		return skipped("customer %s deleted", customer.ID), nil
	}
	saved, err := r.upsertCustomer(ctx, customer.Refs(), upsert.CustomerInput{
		Email:             customer.Email,
		GatewayCustomerID: customer.ID,
		Name:              customer.Name,
		Phone:             customer.Phone,
		Shipping:          customer.Shipping.Snapshot(),
		Billing:           customer.Address.Snapshot(customer.Name, customer.Phone),
		Metadata:          customer.Metadata,
		SeenAt:            ev.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return skipped("customer %s has no identity", customer.ID), nil
	}
	return processed(nil, nil), nil
}

func quoteStatus(eventType enums.GatewayEventType) enums.QuoteStatus {
	switch eventType {
	case enums.EventQuoteCreated:
		return enums.QuoteStatusDraft
	case enums.EventQuoteFinalized:
		return enums.QuoteStatusOpen
	case enums.EventQuoteAccepted:
		return enums.QuoteStatusAccepted
	case enums.EventQuoteCanceled:
		return enums.QuoteStatusCanceled
	}
	return ""
}

func (r *Router) handleQuote(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	quote, ok := payload.(*gateway.Quote)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	refs := quote.Refs()
	quoteState := quoteStatus(ev.Type)

	var lines *cart.Result
	if quote.LineItems != nil && len(quote.LineItems.Data) > 0 {
		built, err := r.normalizer.Build(ctx, cart.Input{LineItems: quote.LineItems.Data, Currency: quote.Currency})
		if err != nil {
			return nil, fmt.Errorf("build quote lines: %w", err)
		}
		lines = built
	}
	subtotal := derive.FromMinor(quote.AmountSubtotal, quote.Currency)
	total := derive.FromMinor(quote.AmountTotal, quote.Currency)
	totals := r.financials.Reconcile(ctx, financials.Input{
		Gateway:  financials.GatewayTotals{Subtotal: &subtotal, Total: &total},
		Cart:     cartTotals(lines),
		Metadata: quote.Metadata,
		Currency: quote.Currency,
	})

	in := upsert.QuoteInput{
		GatewayQuoteID:    quote.ID,
		QuoteNumber:       quote.Number,
		Status:            quoteState,
		GatewayCustomerID: quote.Customer.ID,
		Totals:            &totals,
		ExpiresAt:         derive.FromUnixPtr(quote.ExpiresAt),
		Metadata:          quote.Metadata,
	}
	if lines != nil {
		in.LineItems = lines.Items
	}
	if quote.StatusTransitions != nil {
		in.AcceptedAt = derive.FromUnixPtr(quote.StatusTransitions.AcceptedAt)
	}
	if match, err := r.resolver.ResolveCustomer(ctx, refs); err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	} else if match != nil {
		in.CustomerID = &match.ID
	}

	var orderID *uuid.UUID
	if quoteState == enums.QuoteStatusAccepted {
		match, err := r.resolver.ResolveOrder(ctx, enums.CategoryQuote, refs)
		if err != nil {
			return nil, fmt.Errorf("resolve order: %w", err)
		}
		if match != nil {
			orderID = &match.ID
			in.OrderID = orderID
		}
	}

	saved, err := r.store.UpsertQuote(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("upsert quote: %w", err)
	}
	if saved == nil {
		return skipped("quote %s not mirrored", quote.ID), nil
	}
	out := processed(nil, nil)
	if orderID != nil {
		// link back so later order events carry the quote
		linked, err := r.upsertOrder(ctx, upsert.OrderInput{
			Event:      r.eventRef(ev),
			ExistingID: orderID,
			QuoteID:    &saved.ID,
			Note:       upsert.Note{Label: "quote accepted"},
		})
		if err != nil {
			return nil, err
		}
		out.order = linked.order
	}
	return out, nil
}

func (r *Router) handlePaymentLink(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	link, ok := payload.(*gateway.PaymentLink)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	saved, err := r.store.UpsertPaymentLink(ctx, upsert.PaymentLinkInput{
		GatewayID: link.ID,
		URL:       link.URL,
		Active:    link.Active,
		Currency:  link.Currency,
		QuoteID:   r.resolveQuoteID(ctx, link.Refs()),
		Metadata:  link.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert payment link: %w", err)
	}
	if saved == nil {
		return skipped("payment link %s not mirrored", link.ID), nil
	}
	return processed(nil, nil), nil
}

func (r *Router) handleProduct(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	product, ok := payload.(*gateway.Product)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	if r.catalog == nil {
		return skipped("catalog mirror disabled"), nil
	}
	if _, err := r.catalog.SyncProduct(ctx, product, ev.Type == enums.EventProductDeleted); err != nil {
		return nil, err
	}
	return processed(nil, nil), nil
}

func (r *Router) handlePrice(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	price, ok := payload.(*gateway.Price)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	if r.catalog == nil {
		return skipped("catalog mirror disabled"), nil
	}
	if _, err := r.catalog.SyncPrice(ctx, price, ev.Type == enums.EventPriceDeleted); err != nil {
		return nil, err
	}
	return processed(nil, nil), nil
}
