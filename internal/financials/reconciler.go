// Package financials merges gateway totals, cart totals and operator
// overrides into one set of order amounts.
package financials

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

// Source names where a reconciled amount came from.
type Source string

const (
	SourceOverride Source = "override"
	SourceLiveRate Source = "live_rate"
	SourceGateway  Source = "gateway"
	SourceCart     Source = "cart"
	SourceComputed Source = "computed"
	SourceNone     Source = "none"
)

// GatewayTotals are the amounts reported by the gateway in major units. A nil
// field means the gateway did not report it.
type GatewayTotals struct {
	Subtotal *decimal.Decimal
	Discount *decimal.Decimal
	Tax      *decimal.Decimal
	Shipping *decimal.Decimal
	Total    *decimal.Decimal
}

// CartTotals are derived by summing normalized line items.
type CartTotals struct {
	Subtotal *decimal.Decimal
}

// RateLookup quotes a shipping rate by provider rate id.
type RateLookup interface {
	Rate(ctx context.Context, rateID string) (decimal.Decimal, error)
}

// Input collects every candidate source for one reconciliation.
type Input struct {
	Gateway  GatewayTotals
	Cart     CartTotals
	Metadata map[string]string
	Currency string
}

// Result is the authoritative set of amounts.
type Result struct {
	Currency string
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
	// Adjustment is gateway total minus the computed total when the gateway
	// total was taken over the computed one.
	Adjustment decimal.Decimal
	Sources    map[string]Source
}

// Computed returns subtotal - discount + tax + shipping.
func (r Result) Computed() decimal.Decimal {
	return derive.RoundMoney(r.Subtotal.Sub(r.Discount).Add(r.Tax).Add(r.Shipping))
}

// Reconciler applies the field precedence: metadata override, live shipping
// rate, gateway total, cart total.
type Reconciler struct {
	rates RateLookup
	logg  *logger.Logger
}

// NewReconciler wires a reconciler. rates may be nil.
func NewReconciler(rates RateLookup, logg *logger.Logger) *Reconciler {
	return &Reconciler{rates: rates, logg: logg}
}

// Reconcile never fails; a rate lookup error falls through to the next source.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) Result {
	res := Result{
		Currency: derive.NormalizeCurrency(in.Currency),
		Sources:  make(map[string]Source, 5),
	}

	res.Subtotal = r.pick(res.Sources, "subtotal",
		candidate{SourceOverride, derive.LookupDecimalPtr(in.Metadata, derive.FieldSubtotal)},
		candidate{SourceGateway, in.Gateway.Subtotal},
		candidate{SourceCart, in.Cart.Subtotal},
	)
	res.Discount = r.pick(res.Sources, "discount",
		candidate{SourceOverride, derive.LookupDecimalPtr(in.Metadata, derive.FieldDiscount)},
		candidate{SourceGateway, in.Gateway.Discount},
	)
	res.Tax = r.pick(res.Sources, "tax",
		candidate{SourceOverride, derive.LookupDecimalPtr(in.Metadata, derive.FieldTax)},
		candidate{SourceGateway, in.Gateway.Tax},
	)
	shippingOverride := derive.LookupDecimalPtr(in.Metadata, derive.FieldShipping)
	var rate *decimal.Decimal
	if shippingOverride == nil {
		rate = r.liveRate(ctx, in.Metadata)
	}
	res.Shipping = r.pick(res.Sources, "shipping",
		candidate{SourceOverride, shippingOverride},
		candidate{SourceLiveRate, rate},
		candidate{SourceGateway, in.Gateway.Shipping},
	)

	computed := res.Computed()
	res.Total = computed
	res.Sources["total"] = SourceComputed
	if in.Gateway.Total != nil {
		gatewayTotal := derive.RoundMoney(*in.Gateway.Total)
		if !derive.WithinEpsilon(computed, gatewayTotal) {
			res.Total = gatewayTotal
			res.Adjustment = gatewayTotal.Sub(computed)
			res.Sources["total"] = SourceGateway
			r.logg.Info(ctx, fmt.Sprintf("gateway total %s differs from computed %s; using gateway", gatewayTotal, computed))
		}
	}
	return res
}

type candidate struct {
	source Source
	value  *decimal.Decimal
}

func (r *Reconciler) pick(sources map[string]Source, field string, candidates ...candidate) decimal.Decimal {
	for _, c := range candidates {
		if c.value == nil {
			continue
		}
		sources[field] = c.source
		return derive.RoundMoney(*c.value)
	}
	sources[field] = SourceNone
	return decimal.Zero
}

func (r *Reconciler) liveRate(ctx context.Context, meta map[string]string) *decimal.Decimal {
	if r.rates == nil {
		return nil
	}
	rateID, ok := derive.Lookup(meta, derive.FieldShippingRateID)
	if !ok || strings.TrimSpace(rateID) == "" {
		return nil
	}
	rate, err := r.rates.Rate(ctx, rateID)
	if err != nil {
		r.logg.Warn(ctx, fmt.Sprintf("shipping rate lookup %s failed: %v", rateID, err))
		return nil
	}
	return &rate
}
