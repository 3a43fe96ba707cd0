// Package resolver locates the existing document an event refers to. Every
// strategy is a single indexed read; nothing here writes.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/customers"
	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/invoices"
	"github.com/angelmondragon/gatewaysync/internal/orders"
	"github.com/angelmondragon/gatewaysync/internal/paymentlinks"
	"github.com/angelmondragon/gatewaysync/internal/quotes"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

// Strategy names the rule that produced a match.
type Strategy string

const (
	StrategyMetadataID     Strategy = "metadata_id"
	StrategyGatewayID      Strategy = "gateway_id"
	StrategyBusinessNumber Strategy = "business_number"
	StrategyTransactionIDs Strategy = "transaction_ids"
	StrategyLinkedOrder    Strategy = "linked_order"
	StrategyEmail          Strategy = "email"
)

// Match is a resolved document id and how it was found.
type Match struct {
	ID       uuid.UUID
	Strategy Strategy
}

// Resolver runs the ordered lookup strategies for each document type.
type Resolver struct {
	orders       orders.Repository
	invoices     invoices.Repository
	customers    customers.Repository
	quotes       quotes.Repository
	paymentLinks paymentlinks.Repository
}

// Repositories bundles the read paths the resolver needs.
type Repositories struct {
	Orders       orders.Repository
	Invoices     invoices.Repository
	Customers    customers.Repository
	Quotes       quotes.Repository
	PaymentLinks paymentlinks.Repository
}

// New builds a Resolver. Orders, invoices and customers are required.
func New(repos Repositories) (*Resolver, error) {
	if repos.Orders == nil || repos.Invoices == nil || repos.Customers == nil {
		return nil, fmt.Errorf("orders, invoices and customers repositories are required")
	}
	return &Resolver{
		orders:       repos.Orders,
		invoices:     repos.Invoices,
		customers:    repos.Customers,
		quotes:       repos.Quotes,
		paymentLinks: repos.PaymentLinks,
	}, nil
}

// WithTx returns a resolver reading through tx.
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	if tx == nil {
		return r
	}
	clone := &Resolver{
		orders:    r.orders.WithTx(tx),
		invoices:  r.invoices.WithTx(tx),
		customers: r.customers.WithTx(tx),
	}
	if r.quotes != nil {
		clone.quotes = r.quotes.WithTx(tx)
	}
	if r.paymentLinks != nil {
		clone.paymentLinks = r.paymentLinks.WithTx(tx)
	}
	return clone
}

type step struct {
	strategy Strategy
	find     func(ctx context.Context) (uuid.UUID, error)
}

// run returns the first hit. A nil match with nil error means every step missed.
func run(ctx context.Context, steps []step) (*Match, error) {
	for _, s := range steps {
		id, err := s.find(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, errSkip) {
				continue
			}
			return nil, fmt.Errorf("resolve via %s: %w", s.strategy, err)
		}
		if id != uuid.Nil {
			return &Match{ID: id, Strategy: s.strategy}, nil
		}
	}
	return nil, nil
}

var errSkip = errors.New("strategy not applicable")

func parseID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, errSkip
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errSkip
	}
	return id, nil
}

// primaryOrderColumn is the order column keyed by the event's own resource.
func primaryOrderColumn(category enums.GatewayEventCategory, refs gateway.Refs) (orders.TransactionColumn, string) {
	switch category {
	case enums.CategoryCheckoutSession:
		return orders.ColumnCheckoutSessionID, refs.CheckoutSessionID
	case enums.CategoryPaymentIntent:
		return orders.ColumnPaymentIntentID, refs.PaymentIntentID
	case enums.CategoryCharge, enums.CategoryDispute:
		return orders.ColumnChargeID, refs.ChargeID
	}
	return "", ""
}

// ResolveOrder finds the order an event refers to: metadata id, the event's
// own gateway id, sanitized order number, then any accumulated transaction id.
func (r *Resolver) ResolveOrder(ctx context.Context, category enums.GatewayEventCategory, refs gateway.Refs) (*Match, error) {
	steps := []step{
		{StrategyMetadataID, func(ctx context.Context) (uuid.UUID, error) {
			id, err := parseID(refs.OrderID)
			if err != nil {
				return uuid.Nil, err
			}
			order, err := r.orders.FindByID(ctx, id)
			if err != nil {
				return uuid.Nil, err
			}
			return order.ID, nil
		}},
		{StrategyGatewayID, func(ctx context.Context) (uuid.UUID, error) {
			column, value := primaryOrderColumn(category, refs)
			if column == "" || value == "" {
				return uuid.Nil, errSkip
			}
			order, err := r.orders.FindByTransactionID(ctx, column, value)
			if err != nil {
				return uuid.Nil, err
			}
			return order.ID, nil
		}},
		{StrategyBusinessNumber, func(ctx context.Context) (uuid.UUID, error) {
			number := derive.SanitizeOrderNumber(refs.OrderNumber)
			if number == "" {
				return uuid.Nil, errSkip
			}
			order, err := r.orders.FindByOrderNumber(ctx, number)
			if err != nil {
				return uuid.Nil, err
			}
			return order.ID, nil
		}},
		{StrategyTransactionIDs, func(ctx context.Context) (uuid.UUID, error) {
			ids := orders.TransactionIDs{
				CheckoutSessionID: refs.CheckoutSessionID,
				PaymentIntentID:   refs.PaymentIntentID,
				ChargeID:          refs.ChargeID,
			}
			if ids.IsEmpty() {
				return uuid.Nil, errSkip
			}
			order, err := r.orders.FindByAnyTransactionID(ctx, ids)
			if err != nil {
				return uuid.Nil, err
			}
			return order.ID, nil
		}},
	}
	return run(ctx, steps)
}

// ResolveInvoice finds an invoice by metadata id, gateway invoice id,
// sanitized invoice number, then by the order it was derived from.
func (r *Resolver) ResolveInvoice(ctx context.Context, refs gateway.Refs, orderID *uuid.UUID) (*Match, error) {
	steps := []step{
		{StrategyMetadataID, func(ctx context.Context) (uuid.UUID, error) {
			id, err := parseID(refs.InvoiceID)
			if err != nil {
				return uuid.Nil, err
			}
			invoice, err := r.invoices.FindByID(ctx, id)
			if err != nil {
				return uuid.Nil, err
			}
			return invoice.ID, nil
		}},
		{StrategyGatewayID, func(ctx context.Context) (uuid.UUID, error) {
			if refs.GatewayInvoiceID == "" {
				return uuid.Nil, errSkip
			}
			invoice, err := r.invoices.FindByGatewayInvoiceID(ctx, refs.GatewayInvoiceID)
			if err != nil {
				return uuid.Nil, err
			}
			return invoice.ID, nil
		}},
		{StrategyBusinessNumber, func(ctx context.Context) (uuid.UUID, error) {
			number := derive.SanitizeInvoiceNumber(refs.InvoiceNumber)
			if number == "" {
				return uuid.Nil, errSkip
			}
			invoice, err := r.invoices.FindByInvoiceNumber(ctx, number)
			if err != nil {
				return uuid.Nil, err
			}
			return invoice.ID, nil
		}},
		{StrategyLinkedOrder, func(ctx context.Context) (uuid.UUID, error) {
			if orderID == nil || *orderID == uuid.Nil {
				return uuid.Nil, errSkip
			}
			invoice, err := r.invoices.FindByOrderID(ctx, *orderID)
			if err != nil {
				return uuid.Nil, err
			}
			return invoice.ID, nil
		}},
	}
	return run(ctx, steps)
}

// ResolveCustomer finds a profile by metadata id, gateway customer id, then
// normalized email.
func (r *Resolver) ResolveCustomer(ctx context.Context, refs gateway.Refs) (*Match, error) {
	steps := []step{
		{StrategyMetadataID, func(ctx context.Context) (uuid.UUID, error) {
			id, err := parseID(refs.CustomerID)
			if err != nil {
				return uuid.Nil, err
			}
			customer, err := r.customers.FindByID(ctx, id)
			if err != nil {
				return uuid.Nil, err
			}
			return customer.ID, nil
		}},
		{StrategyGatewayID, func(ctx context.Context) (uuid.UUID, error) {
			if refs.GatewayCustomerID == "" {
				return uuid.Nil, errSkip
			}
			customer, err := r.customers.FindByGatewayCustomerID(ctx, refs.GatewayCustomerID)
			if err != nil {
				return uuid.Nil, err
			}
			return customer.ID, nil
		}},
		{StrategyEmail, func(ctx context.Context) (uuid.UUID, error) {
			email := derive.NormalizeEmail(refs.Email)
			if email == "" {
				return uuid.Nil, errSkip
			}
			customer, err := r.customers.FindByEmail(ctx, email)
			if err != nil {
				return uuid.Nil, err
			}
			return customer.ID, nil
		}},
	}
	return run(ctx, steps)
}

// ResolveQuote finds a quote by metadata id then gateway quote id.
func (r *Resolver) ResolveQuote(ctx context.Context, refs gateway.Refs) (*Match, error) {
	if r.quotes == nil {
		return nil, nil
	}
	steps := []step{
		{StrategyMetadataID, func(ctx context.Context) (uuid.UUID, error) {
			id, err := parseID(refs.QuoteID)
			if err != nil {
				return uuid.Nil, err
			}
			quote, err := r.quotes.FindByID(ctx, id)
			if err != nil {
				return uuid.Nil, err
			}
			return quote.ID, nil
		}},
		{StrategyGatewayID, func(ctx context.Context) (uuid.UUID, error) {
			if refs.GatewayQuoteID == "" {
				return uuid.Nil, errSkip
			}
			quote, err := r.quotes.FindByGatewayQuoteID(ctx, refs.GatewayQuoteID)
			if err != nil {
				return uuid.Nil, err
			}
			return quote.ID, nil
		}},
	}
	return run(ctx, steps)
}

// ResolvePaymentLink finds a payment link by its gateway id.
func (r *Resolver) ResolvePaymentLink(ctx context.Context, refs gateway.Refs) (*Match, error) {
	if r.paymentLinks == nil {
		return nil, nil
	}
	return run(ctx, []step{
		{StrategyGatewayID, func(ctx context.Context) (uuid.UUID, error) {
			if refs.GatewayPaymentLinkID == "" {
				return uuid.Nil, errSkip
			}
			link, err := r.paymentLinks.FindByGatewayID(ctx, refs.GatewayPaymentLinkID)
			if err != nil {
				return uuid.Nil, err
			}
			return link.ID, nil
		}},
	})
}
