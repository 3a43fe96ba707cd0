package upsert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/cart"
	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/internal/financials"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/orders"
	"github.com/angelmondragon/gatewaysync/internal/status"
	dbpkg "github.com/angelmondragon/gatewaysync/pkg/db"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/outbox"
	"github.com/angelmondragon/gatewaysync/pkg/outbox/payloads"
	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// Contact is buyer contact information carried by an event.
type Contact struct {
	Email string
	Name  string
	Phone string
}

// OrderInput is everything one event contributes to an order.
type OrderInput struct {
	Event EventRef
	// ExistingID is the resolver's match. When nil the natural keys in IDs
	// and OrderNumber are tried before creating.
	ExistingID  *uuid.UUID
	AllowCreate bool

	IDs         orders.TransactionIDs
	OrderNumber string

	Status           enums.PaymentStatus
	OverrideTerminal bool
	Fulfillment      enums.FulfillmentStatus
	Diagnostics      *status.Diagnostics
	ForceDiagnostics bool

	Totals         *financials.Result
	Cart           *cart.Result
	AmountRefunded *decimal.Decimal

	Contact           Contact
	ShippingAddress   *types.Address
	BillingAddress    *types.Address
	Payment           *gateway.PaymentDetails
	CustomerID        *uuid.UUID
	GatewayCustomerID string
	QuoteID           *uuid.UUID
	PaymentLinkID     string
	Metadata          map[string]string

	// EnsureInvoice creates and links an invoice once the order is
	// paid-equivalent and has none.
	EnsureInvoice bool
	InvoiceNumber string

	Note Note
}

// OrderResult reports what an order upsert did.
type OrderResult struct {
	Order          *models.Order
	Created        bool
	Skipped        bool
	PreviousStatus enums.PaymentStatus
	Outcome        status.Outcome
	Journaled      bool
	Invoice        *models.Invoice
	InvoiceCreated bool
}

// StatusChanged reports whether the write moved the payment status.
func (r *OrderResult) StatusChanged() bool {
	return r != nil && r.Order != nil && r.Order.PaymentStatus != r.PreviousStatus
}

// EnteredPaid reports whether this write moved the order into paid.
func (r *OrderResult) EnteredPaid() bool {
	return r.StatusChanged() && r.Order.PaymentStatus == enums.PaymentStatusPaid
}

// UpsertOrder creates or patches one order. Without a match and without
// AllowCreate it reports Skipped and writes nothing.
func (s *Store) UpsertOrder(ctx context.Context, in OrderInput) (*OrderResult, error) {
	var result *OrderResult
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.upsertOrder(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) upsertOrder(ctx context.Context, tx *gorm.DB, in OrderInput) (*OrderResult, error) {
	repo := s.orders.WithTx(tx)
	current, err := s.findOrder(ctx, repo, in)
	if err != nil {
		return nil, err
	}

	if current == nil {
		if !in.AllowCreate {
			return &OrderResult{Skipped: true}, nil
		}
		order := s.newOrder(in)
		createErr := tx.Transaction(func(inner *gorm.DB) error {
			return repo.WithTx(inner).Create(ctx, order)
		})
		if createErr == nil {
			res := &OrderResult{
				Order:   order,
				Created: true,
				Outcome: status.Outcome{Decision: status.DecisionApply, Reason: status.ReasonInitial, Status: order.PaymentStatus},
			}
			return s.finishOrder(ctx, tx, res, in)
		}
		if !dbpkg.IsUniqueViolation(createErr) {
			return nil, fmt.Errorf("create order: %w", createErr)
		}
		// a concurrent delivery won the insert
		current, err = s.findOrder(ctx, repo, in)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("create order: %w", createErr)
		}
	}

	return s.patchOrder(ctx, tx, repo, current, in)
}

func (s *Store) findOrder(ctx context.Context, repo orders.Repository, in OrderInput) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	switch {
	case in.ExistingID != nil:
		order, err = repo.FindByID(ctx, *in.ExistingID)
	case !in.IDs.IsEmpty():
		order, err = repo.FindByAnyTransactionID(ctx, in.IDs)
		if errors.Is(err, gorm.ErrRecordNotFound) && in.OrderNumber != "" {
			order, err = repo.FindByOrderNumber(ctx, derive.SanitizeOrderNumber(in.OrderNumber))
		}
	case in.OrderNumber != "":
		order, err = repo.FindByOrderNumber(ctx, derive.SanitizeOrderNumber(in.OrderNumber))
	default:
		return nil, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (s *Store) newOrder(in OrderInput) *models.Order {
	at := s.occurredAt(in.Event)
	paymentStatus := in.Status
	if paymentStatus == "" {
		paymentStatus = enums.PaymentStatusPending
	}
	fulfillment := in.Fulfillment
	if !fulfillment.IsValid() {
		fulfillment = enums.FulfillmentStatusUnfulfilled
	}
	number := derive.SanitizeOrderNumber(in.OrderNumber)
	if number == "" {
		number = derive.NewOrderNumber(s.now())
	}

	order := &models.Order{
		OrderNumber:       number,
		CheckoutSessionID: strPtr(in.IDs.CheckoutSessionID),
		PaymentIntentID:   strPtr(in.IDs.PaymentIntentID),
		ChargeID:          strPtr(in.IDs.ChargeID),
		PaymentLinkID:     strPtr(in.PaymentLinkID),
		GatewayCustomerID: strPtr(in.GatewayCustomerID),
		CustomerID:        in.CustomerID,
		QuoteID:           in.QuoteID,
		CustomerEmail:     strPtr(derive.NormalizeEmail(in.Contact.Email)),
		CustomerName:      strPtr(in.Contact.Name),
		CustomerPhone:     strPtr(in.Contact.Phone),
		PaymentStatus:     paymentStatus,
		PaymentStatusAt:   &at,
		FulfillmentStatus: fulfillment,
		Currency:          derive.NormalizeCurrency(""),
		Metadata:          in.Metadata,
		LastEventID:       strPtr(in.Event.ID),
	}
	if !in.ShippingAddress.IsEmpty() {
		order.ShippingAddress = types.MergeAddress(nil, in.ShippingAddress)
	}
	if !in.BillingAddress.IsEmpty() {
		order.BillingAddress = types.MergeAddress(nil, in.BillingAddress)
	}
	if t := in.Totals; t != nil {
		order.Currency = t.Currency
		order.Subtotal = t.Subtotal
		order.Discount = t.Discount
		order.Tax = t.Tax
		order.Shipping = t.Shipping
		order.Total = t.Total
		order.TotalAdjustment = t.Adjustment
	}
	if !in.Cart.IsEmpty() {
		order.Cart = in.Cart.Items
		order.Package = in.Cart.Package
		order.SaleDiscount = in.Cart.SaleDiscount
	}
	if in.AmountRefunded != nil {
		order.AmountRefunded = *in.AmountRefunded
	}
	if p := in.Payment; p != nil {
		if order.ChargeID == nil {
			order.ChargeID = strPtr(p.ChargeID)
		}
		order.CardBrand = strPtr(p.CardBrand)
		order.CardLast4 = strPtr(p.CardLast4)
		order.ReceiptURL = strPtr(p.ReceiptURL)
	}
	if d := in.Diagnostics; d != nil {
		order.FailureCode = strPtr(d.Code)
		order.FailureMessage = strPtr(d.Message)
	}
	return order
}

func (s *Store) patchOrder(ctx context.Context, tx *gorm.DB, repo orders.Repository, current *models.Order, in OrderInput) (*OrderResult, error) {
	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		if attempt > 0 {
			reloaded, err := repo.FindByID(ctx, current.ID)
			if err != nil {
				return nil, fmt.Errorf("reload order: %w", err)
			}
			current = reloaded
		}

		outcome := status.Decide(status.Transition{
			Current:          current.PaymentStatus,
			CurrentAt:        current.PaymentStatusAt,
			Incoming:         in.Status,
			OccurredAt:       in.Event.OccurredAt,
			OverrideTerminal: in.OverrideTerminal,
		})
		updates, err := s.orderUpdates(current, in, outcome)
		if err != nil {
			return nil, err
		}
		ok, err := repo.UpdateIfStatus(ctx, current.ID, current.PaymentStatus, updates)
		if err != nil {
			return nil, fmt.Errorf("update order: %w", err)
		}
		if !ok {
			continue
		}

		order, err := repo.FindByID(ctx, current.ID)
		if err != nil {
			return nil, fmt.Errorf("reload order: %w", err)
		}
		res := &OrderResult{
			Order:          order,
			PreviousStatus: current.PaymentStatus,
			Outcome:        outcome,
		}
		return s.finishOrder(ctx, tx, res, in)
	}
	return nil, ErrStatusContention
}

// orderUpdates builds the patch for one event. Informational fields fill
// when empty in every case; status, totals and the cart snapshot are only
// replaced when the decision applies.
func (s *Store) orderUpdates(current *models.Order, in OrderInput, outcome status.Outcome) (map[string]any, error) {
	apply := outcome.Decision == status.DecisionApply
	updates := map[string]any{}
	if in.Event.ID != "" {
		updates["last_event_id"] = in.Event.ID
	}

	if apply {
		at := laterOf(current.PaymentStatusAt, s.occurredAt(in.Event))
		if outcome.Status != current.PaymentStatus {
			updates["payment_status"] = outcome.Status
			updates["payment_status_at"] = at
		} else if current.PaymentStatusAt == nil || at.After(*current.PaymentStatusAt) {
			updates["payment_status_at"] = at
		}
	}

	fill(updates, "checkout_session_id", current.CheckoutSessionID, in.IDs.CheckoutSessionID)
	fill(updates, "payment_intent_id", current.PaymentIntentID, in.IDs.PaymentIntentID)
	chargeID := in.IDs.ChargeID
	if chargeID == "" && in.Payment != nil {
		chargeID = in.Payment.ChargeID
	}
	fill(updates, "charge_id", current.ChargeID, chargeID)
	fill(updates, "payment_link_id", current.PaymentLinkID, in.PaymentLinkID)
	fill(updates, "gateway_customer_id", current.GatewayCustomerID, in.GatewayCustomerID)
	fill(updates, "customer_email", current.CustomerEmail, derive.NormalizeEmail(in.Contact.Email))
	fill(updates, "customer_name", current.CustomerName, in.Contact.Name)
	fill(updates, "customer_phone", current.CustomerPhone, in.Contact.Phone)
	fillUUID(updates, "customer_id", current.CustomerID, in.CustomerID)
	fillUUID(updates, "quote_id", current.QuoteID, in.QuoteID)

	if p := in.Payment; p != nil {
		forceCard(updates, "card_brand", current.CardBrand, p.CardBrand, apply)
		forceCard(updates, "card_last4", current.CardLast4, p.CardLast4, apply)
		forceCard(updates, "receipt_url", current.ReceiptURL, p.ReceiptURL, apply)
	}
	if in.Diagnostics != nil {
		for k, v := range status.FillDiagnostics(current.FailureCode, current.FailureMessage, *in.Diagnostics, in.ForceDiagnostics) {
			updates[k] = v
		}
	}
	if next, changed := status.AdvanceFulfillment(current.FulfillmentStatus, in.Fulfillment); changed {
		updates["fulfillment_status"] = next
	}
	if in.AmountRefunded != nil && in.AmountRefunded.GreaterThan(current.AmountRefunded) {
		updates["amount_refunded"] = *in.AmountRefunded
	}

	if err := addressUpdate(updates, "shipping_address", current.ShippingAddress, in.ShippingAddress, apply); err != nil {
		return nil, err
	}
	if err := addressUpdate(updates, "billing_address", current.BillingAddress, in.BillingAddress, apply); err != nil {
		return nil, err
	}

	if t := in.Totals; t != nil && (apply || current.Total.IsZero()) {
		updates["currency"] = t.Currency
		updates["subtotal"] = t.Subtotal
		updates["discount"] = t.Discount
		updates["tax"] = t.Tax
		updates["shipping"] = t.Shipping
		updates["total"] = t.Total
		updates["total_adjustment"] = t.Adjustment
	}
	if !in.Cart.IsEmpty() && (apply || len(current.Cart) == 0) {
		items, err := jsonColumn(in.Cart.Items)
		if err != nil {
			return nil, fmt.Errorf("encode cart: %w", err)
		}
		updates["cart"] = items
		updates["sale_discount"] = in.Cart.SaleDiscount
		if in.Cart.Package != nil {
			pkg, err := jsonColumn(in.Cart.Package)
			if err != nil {
				return nil, fmt.Errorf("encode package: %w", err)
			}
			updates["package"] = pkg
		}
	}
	if merged, changed := mergeMetadata(current.Metadata, in.Metadata); changed {
		meta, err := jsonColumn(merged)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		updates["metadata"] = meta
	}
	return updates, nil
}

func (s *Store) finishOrder(ctx context.Context, tx *gorm.DB, res *OrderResult, in OrderInput) (*OrderResult, error) {
	order := res.Order
	if in.EnsureInvoice && order.PaymentStatus.IsPaidEquivalent() {
		invoice, created, err := s.ensureInvoice(ctx, tx, order, in)
		if err != nil {
			return nil, err
		}
		res.Invoice = invoice
		res.InvoiceCreated = created
	}
	if res.StatusChanged() && !res.InvoiceCreated && order.InvoiceID != nil {
		if err := s.syncInvoiceStatus(ctx, tx, order, in.Event, in.OverrideTerminal); err != nil {
			return nil, err
		}
	}

	if res.StatusChanged() && s.outbox != nil {
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Source:        &outbox.SourceRef{GatewayEventID: in.Event.ID, GatewayEventType: in.Event.Type},
			Version:       1,
			OccurredAt:    s.occurredAt(in.Event),
			Data: payloads.OrderPaymentStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				PreviousStatus: res.PreviousStatus,
				Status:         order.PaymentStatus,
				Total:          order.Total,
				Currency:       order.Currency,
				InvoiceID:      order.InvoiceID,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("emit order status event: %w", err)
		}
	}

	note := in.Note
	if res.Outcome.Decision == status.DecisionRestrict && in.Status != "" && note.Message == "" {
		note.Message = fmt.Sprintf("%s not applied (%s)", in.Status, res.Outcome.Reason)
	}
	if note.Currency == "" {
		note.Currency = order.Currency
	}
	journaled, err := s.record(ctx, tx, enums.JournalEntityOrder, order.ID, in.Event, string(order.PaymentStatus), note)
	if err != nil {
		return nil, fmt.Errorf("journal order: %w", err)
	}
	res.Journaled = journaled
	return res, nil
}

func fill(updates map[string]any, column string, current *string, incoming string) {
	if v, changed := status.FillString(current, incoming, false); changed {
		updates[column] = *v
	}
}

func forceCard(updates map[string]any, column string, current *string, incoming string, force bool) {
	if v, changed := status.FillString(current, incoming, force); changed {
		updates[column] = *v
	}
}

func fillUUID(updates map[string]any, column string, current, incoming *uuid.UUID) {
	if current == nil && incoming != nil && *incoming != uuid.Nil {
		updates[column] = *incoming
	}
}

// addressUpdate overlays the incoming snapshot on apply and only fills gaps
// otherwise.
func addressUpdate(updates map[string]any, column string, current, incoming *types.Address, apply bool) error {
	if incoming.IsEmpty() {
		return nil
	}
	var next *types.Address
	if apply {
		next = types.MergeAddress(incoming, current)
	} else {
		next = types.MergeAddress(current, incoming)
	}
	if current != nil && next != nil && *current == *next {
		return nil
	}
	encoded, err := jsonColumn(next)
	if err != nil {
		return fmt.Errorf("encode %s: %w", column, err)
	}
	updates[column] = encoded
	return nil
}

func laterOf(a *time.Time, b time.Time) time.Time {
	if a != nil && a.After(b) {
		return *a
	}
	return b
}
