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

func intentStatus(eventType enums.GatewayEventType) (enums.PaymentStatus, enums.FulfillmentStatus) {
	switch eventType {
	case enums.EventPaymentIntentSucceeded:
		return enums.PaymentStatusPaid, ""
	case enums.EventPaymentIntentPaymentFailed:
		return enums.PaymentStatusFailed, ""
	case enums.EventPaymentIntentCanceled:
		return enums.PaymentStatusCancelled, ""
	case enums.EventPaymentIntentProcessing:
		return enums.PaymentStatusPending, ""
	case enums.EventPaymentIntentAmountCapturableUpdated:
		return "", enums.FulfillmentStatusAwaitingCapture
	}
	return "", ""
}

// handlePaymentIntent only creates an order when the intent carries a
// legacy metadata cart; otherwise the checkout session owns creation.
func (r *Router) handlePaymentIntent(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	intent, ok := payload.(*gateway.PaymentIntent)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	refs := intent.Refs()
	paymentStatus, fulfillment := intentStatus(ev.Type)

	match, err := r.resolver.ResolveOrder(ctx, enums.CategoryPaymentIntent, refs)
	if err != nil {
		return nil, fmt.Errorf("resolve order: %w", err)
	}
	allowCreate := cart.HasLegacyCart(intent.Metadata)
	if match == nil && !allowCreate {
		return skipped("no order for payment intent %s", intent.ID), nil
	}

	details := intent.Details()
	payment := r.completeCard(ctx, details)

	in := upsert.OrderInput{
		Event:       r.eventRef(ev),
		AllowCreate: allowCreate,
		IDs: orders.TransactionIDs{
			PaymentIntentID: intent.ID,
			ChargeID:        details.ChargeID,
		},
		OrderNumber:       refs.OrderNumber,
		Status:            paymentStatus,
		Fulfillment:       fulfillment,
		Contact:           upsert.Contact{Email: refs.Email},
		ShippingAddress:   intent.Shipping.Snapshot(),
		Payment:           payment,
		GatewayCustomerID: intent.Customer.ID,
		Metadata:          intent.Metadata,
		EnsureInvoice:     paymentStatus == enums.PaymentStatusPaid,
		InvoiceNumber:     refs.InvoiceNumber,
		Note:              upsert.Note{Label: "payment " + string(ev.Type)},
	}
	if intent.Shipping != nil {
		in.Contact.Name = intent.Shipping.Name
		in.Contact.Phone = intent.Shipping.Phone
	}
	if ev.Type == enums.EventPaymentIntentPaymentFailed {
		// the failure event is the most specific diagnostic the gateway sends
		in.Diagnostics = diagnosticsOf(payment)
		in.ForceDiagnostics = true
	}
	if ev.Type == enums.EventPaymentIntentCanceled && intent.CancellationReason != "" && in.Diagnostics == nil {
		in.Diagnostics = diagnosticsOf(&gateway.PaymentDetails{FailureCode: intent.CancellationReason})
	}

	if match != nil {
		in.ExistingID = &match.ID
	} else {
		cartResult, err := r.normalizer.Build(ctx, cart.Input{Metadata: intent.Metadata, Currency: intent.Currency})
		if err != nil {
			return nil, fmt.Errorf("build cart: %w", err)
		}
		amount := derive.FromMinor(intent.Amount, intent.Currency)
		totals := r.financials.Reconcile(ctx, financials.Input{
			Gateway:  financials.GatewayTotals{Total: &amount},
			Cart:     cartTotals(cartResult),
			Metadata: intent.Metadata,
			Currency: intent.Currency,
		})
		in.Cart = cartResult
		in.Totals = &totals

		customer, err := r.upsertCustomer(ctx, refs, upsert.CustomerInput{
			Email:             refs.Email,
			GatewayCustomerID: intent.Customer.ID,
			Name:              in.Contact.Name,
			Phone:             in.Contact.Phone,
			Shipping:          in.ShippingAddress,
			SeenAt:            ev.OccurredAt,
		})
		if err != nil {
			return nil, err
		}
		if customer != nil {
			in.CustomerID = &customer.ID
		}
	}
	return r.upsertOrder(ctx, in)
}

// handleCharge patches an existing order; charges never create one.
func (r *Router) handleCharge(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	charge, ok := payload.(*gateway.Charge)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	refs := charge.Refs()
	match, err := r.resolver.ResolveOrder(ctx, enums.CategoryCharge, refs)
	if err != nil {
		return nil, fmt.Errorf("resolve order: %w", err)
	}
	if match == nil {
		return skipped("no order for charge %s", charge.ID), nil
	}

	details := charge.Details()
	in := upsert.OrderInput{
		Event:      r.eventRef(ev),
		ExistingID: &match.ID,
		IDs: orders.TransactionIDs{
			PaymentIntentID: charge.PaymentIntent.ID,
			ChargeID:        charge.ID,
		},
		Contact:        upsert.Contact{Email: refs.Email},
		BillingAddress: charge.BillingDetails.Snapshot(),
		Payment:        &details,
		Note:           upsert.Note{Label: string(ev.Type)},
	}
	if charge.BillingDetails != nil {
		in.Contact.Name = charge.BillingDetails.Name
		in.Contact.Phone = charge.BillingDetails.Phone
	}

	switch ev.Type {
	case enums.EventChargeRefunded:
		refunded := derive.FromMinor(charge.AmountRefunded, charge.Currency)
		in.AmountRefunded = &refunded
		in.Note.Amount = &refunded
		in.Note.Currency = derive.NormalizeCurrency(charge.Currency)
		if charge.FullyRefunded() {
			in.Status = enums.PaymentStatusRefunded
		} else {
			in.Status = enums.PaymentStatusPartiallyRefunded
		}
	case enums.EventChargeCaptured:
		in.Status = enums.PaymentStatusPaid
		in.Fulfillment = enums.FulfillmentStatusReadyToShip
		in.EnsureInvoice = true
	case enums.EventChargeFailed:
		in.Diagnostics = diagnosticsOf(&details)
	case enums.EventChargeSucceeded:
		if !charge.Captured {
			in.Fulfillment = enums.FulfillmentStatusAwaitingCapture
		}
	}
	return r.upsertOrder(ctx, in)
}

func disputeStatus(eventType enums.GatewayEventType, dispute *gateway.Dispute) (enums.PaymentStatus, bool) {
	switch eventType {
	case enums.EventChargeDisputeCreated:
		return enums.PaymentStatusDisputed, false
	case enums.EventChargeDisputeClosed:
		switch dispute.Status {
		case gateway.DisputeStatusWon:
			return enums.PaymentStatusPaid, false
		case gateway.DisputeStatusLost:
			return enums.PaymentStatusCancelled, false
		}
	case enums.EventChargeDisputeFundsReinstated:
		return enums.PaymentStatusPaid, true
	}
	return "", false
}

// handleDispute patches an existing order; disputes never create one.
func (r *Router) handleDispute(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error) {
	dispute, ok := payload.(*gateway.Dispute)
	if !ok {
		return nil, unexpectedPayload(ev, payload)
	}
	refs := dispute.Refs()
	match, err := r.resolver.ResolveOrder(ctx, enums.CategoryDispute, refs)
	if err != nil {
		return nil, fmt.Errorf("resolve order: %w", err)
	}
	if match == nil {
		return skipped("no order for dispute %s", dispute.ID), nil
	}

	paymentStatus, override := disputeStatus(ev.Type, dispute)
	amount := derive.FromMinor(dispute.Amount, dispute.Currency)
	in := upsert.OrderInput{
		Event:            r.eventRef(ev),
		ExistingID:       &match.ID,
		Status:           paymentStatus,
		OverrideTerminal: override,
		Note: upsert.Note{
			Label:    string(ev.Type),
			Message:  dispute.Reason,
			Amount:   &amount,
			Currency: derive.NormalizeCurrency(dispute.Currency),
		},
	}
	if paymentStatus == enums.PaymentStatusCancelled {
		in.Fulfillment = enums.FulfillmentStatusCancelled
	}
	return r.upsertOrder(ctx, in)
}
