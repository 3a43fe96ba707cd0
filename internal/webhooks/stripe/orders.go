package stripewebhook

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/status"
	"github.com/angelmondragon/gatewaysync/internal/upsert"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

func (r *Router) upsertOrder(ctx context.Context, in upsert.OrderInput) (*outcome, error) {
	res, err := r.store.UpsertOrder(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("upsert order: %w", err)
	}
	if res.Skipped {
		return skipped("no matching order"), nil
	}

	ctx = r.logg.WithOrderID(ctx, res.Order.ID.String())
	if res.Created {
		r.logg.Info(ctx, "order created")
	}
	out := processed(res.Order, res.Invoice)
	if res.Outcome.Decision == status.DecisionRestrict && in.Status != "" {
		out.message = fmt.Sprintf("%s held at %s (%s)", in.Status, res.Order.PaymentStatus, res.Outcome.Reason)
		r.logg.Info(ctx, "status write suppressed: "+out.message)
	}
	if res.InvoiceCreated && res.Invoice != nil {
		r.logg.Info(r.logg.WithInvoiceID(ctx, res.Invoice.ID.String()), "invoice created")
	}
	r.notifyPaid(ctx, res)
	return out, nil
}

// upsertCustomer resolves then fills the buyer profile. A missing identity
// yields nil without error.
func (r *Router) upsertCustomer(ctx context.Context, refs gateway.Refs, in upsert.CustomerInput) (*models.Customer, error) {
	if in.Email == "" {
		in.Email = refs.Email
	}
	if in.GatewayCustomerID == "" {
		in.GatewayCustomerID = refs.GatewayCustomerID
	}
	lookup := refs
	lookup.Email = in.Email
	lookup.GatewayCustomerID = in.GatewayCustomerID
	match, err := r.resolver.ResolveCustomer(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}
	if match != nil {
		in.ExistingID = &match.ID
	}
	customer, _, err := r.store.UpsertCustomer(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}
	return customer, nil
}

// resolveQuoteID is best effort; a lookup failure leaves the link empty.
func (r *Router) resolveQuoteID(ctx context.Context, refs gateway.Refs) *uuid.UUID {
	if refs.QuoteID == "" && refs.GatewayQuoteID == "" {
		return nil
	}
	match, err := r.resolver.ResolveQuote(ctx, refs)
	if err != nil {
		r.logg.Warn(ctx, fmt.Sprintf("quote lookup failed: %v", err))
		return nil
	}
	if match == nil {
		return nil
	}
	return &match.ID
}

// intentDetails reads card and diagnostic fields from a payment intent the
// event expanded, fetching it when it did not. Fetch failures leave the
// fields absent.
func (r *Router) intentDetails(ctx context.Context, ref gateway.ExpandableID, st enums.PaymentStatus) *gateway.PaymentDetails {
	if ref.ID == "" {
		return nil
	}
	var intent gateway.PaymentIntent
	if !ref.Expanded(&intent) {
		if r.fetcher == nil || st != enums.PaymentStatusPaid {
			return nil
		}
		fetched, err := r.fetcher.PaymentIntent(ctx, ref.ID)
		if err != nil {
			r.logg.Warn(ctx, fmt.Sprintf("payment intent fetch failed: %v", err))
			return nil
		}
		intent = *fetched
	}
	details := intent.Details()
	return r.completeCard(ctx, details)
}

// completeCard fetches the charge when only its id is known.
func (r *Router) completeCard(ctx context.Context, details gateway.PaymentDetails) *gateway.PaymentDetails {
	if details.CardBrand == "" && details.ChargeID != "" && r.fetcher != nil {
		charge, err := r.fetcher.Charge(ctx, details.ChargeID)
		if err != nil {
			r.logg.Warn(ctx, fmt.Sprintf("charge fetch failed: %v", err))
		} else {
			fetched := charge.Details()
			fetched.FailureCode = firstNonEmpty(details.FailureCode, fetched.FailureCode)
			fetched.FailureMessage = firstNonEmpty(details.FailureMessage, fetched.FailureMessage)
			details = fetched
		}
	}
	if details == (gateway.PaymentDetails{}) {
		return nil
	}
	return &details
}

func diagnosticsOf(details *gateway.PaymentDetails) *status.Diagnostics {
	if details == nil {
		return nil
	}
	diag := status.Diagnostics{Code: details.FailureCode, Message: details.FailureMessage}
	if diag.IsEmpty() {
		return nil
	}
	return &diag
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
