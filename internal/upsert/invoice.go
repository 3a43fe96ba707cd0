package upsert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/internal/financials"
	"github.com/angelmondragon/gatewaysync/internal/invoices"
	"github.com/angelmondragon/gatewaysync/internal/status"
	dbpkg "github.com/angelmondragon/gatewaysync/pkg/db"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/outbox"
	"github.com/angelmondragon/gatewaysync/pkg/outbox/payloads"
	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// InvoiceInput is everything one invoice event contributes.
type InvoiceInput struct {
	Event       EventRef
	ExistingID  *uuid.UUID
	AllowCreate bool

	GatewayInvoiceID  string
	InvoiceNumber     string
	OrderID           *uuid.UUID
	CustomerID        *uuid.UUID
	GatewayCustomerID string
	PaymentIntentID   string
	Email             string

	Status           enums.PaymentStatus
	OverrideTerminal bool
	Diagnostics      *status.Diagnostics
	ForceDiagnostics bool

	Totals    *financials.Result
	LineItems []types.CartItem
	HostedURL string
	PDFURL    string
	DueAt     *time.Time
	Metadata  map[string]string

	Note Note
}

// InvoiceResult reports what an invoice upsert did.
type InvoiceResult struct {
	Invoice        *models.Invoice
	Created        bool
	Skipped        bool
	PreviousStatus enums.PaymentStatus
	Outcome        status.Outcome
	Journaled      bool
}

// StatusChanged reports whether the write moved the invoice status.
func (r *InvoiceResult) StatusChanged() bool {
	return r != nil && r.Invoice != nil && r.Invoice.Status != r.PreviousStatus
}

// UpsertInvoice creates or patches one invoice.
func (s *Store) UpsertInvoice(ctx context.Context, in InvoiceInput) (*InvoiceResult, error) {
	var result *InvoiceResult
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.upsertInvoice(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) upsertInvoice(ctx context.Context, tx *gorm.DB, in InvoiceInput) (*InvoiceResult, error) {
	repo := s.invoices.WithTx(tx)
	current, err := findInvoice(ctx, repo, in)
	if err != nil {
		return nil, err
	}

	if current == nil {
		if !in.AllowCreate {
			return &InvoiceResult{Skipped: true}, nil
		}
		invoice := s.newInvoice(in)
		created, err := s.createInvoice(ctx, tx, repo, invoice, in.Event)
		if err != nil {
			return nil, err
		}
		if created {
			res := &InvoiceResult{
				Invoice: invoice,
				Created: true,
				Outcome: status.Outcome{Decision: status.DecisionApply, Reason: status.ReasonInitial, Status: invoice.Status},
			}
			return s.finishInvoice(ctx, tx, res, in)
		}
		current, err = findInvoice(ctx, repo, in)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, errors.New("create invoice: lost race and no row found")
		}
	}

	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		if attempt > 0 {
			if current, err = repo.FindByID(ctx, current.ID); err != nil {
				return nil, fmt.Errorf("reload invoice: %w", err)
			}
		}
		outcome := status.Decide(status.Transition{
			Current:          current.Status,
			CurrentAt:        current.StatusAt,
			Incoming:         in.Status,
			OccurredAt:       in.Event.OccurredAt,
			OverrideTerminal: in.OverrideTerminal,
		})
		updates, err := s.invoiceUpdates(current, in, outcome)
		if err != nil {
			return nil, err
		}
		ok, err := repo.UpdateIfStatus(ctx, current.ID, current.Status, updates)
		if err != nil {
			return nil, fmt.Errorf("update invoice: %w", err)
		}
		if !ok {
			continue
		}
		invoice, err := repo.FindByID(ctx, current.ID)
		if err != nil {
			return nil, fmt.Errorf("reload invoice: %w", err)
		}
		res := &InvoiceResult{Invoice: invoice, PreviousStatus: current.Status, Outcome: outcome}
		return s.finishInvoice(ctx, tx, res, in)
	}
	return nil, ErrStatusContention
}

func findInvoice(ctx context.Context, repo invoices.Repository, in InvoiceInput) (*models.Invoice, error) {
	lookups := []func() (*models.Invoice, error){}
	if in.ExistingID != nil {
		id := *in.ExistingID
		lookups = append(lookups, func() (*models.Invoice, error) { return repo.FindByID(ctx, id) })
	}
	if in.GatewayInvoiceID != "" {
		lookups = append(lookups, func() (*models.Invoice, error) { return repo.FindByGatewayInvoiceID(ctx, in.GatewayInvoiceID) })
	}
	if in.OrderID != nil {
		id := *in.OrderID
		lookups = append(lookups, func() (*models.Invoice, error) { return repo.FindByOrderID(ctx, id) })
	}
	for _, lookup := range lookups {
		invoice, err := lookup()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find invoice: %w", err)
		}
		return invoice, nil
	}
	return nil, nil
}

func (s *Store) newInvoice(in InvoiceInput) *models.Invoice {
	at := s.occurredAt(in.Event)
	st := in.Status
	if st == "" {
		st = enums.PaymentStatusPending
	}
	number := derive.SanitizeInvoiceNumber(in.InvoiceNumber)
	if number == "" {
		number = derive.NewInvoiceNumber(s.now())
	}
	invoice := &models.Invoice{
		InvoiceNumber:     number,
		GatewayInvoiceID:  strPtr(in.GatewayInvoiceID),
		OrderID:           in.OrderID,
		CustomerID:        in.CustomerID,
		GatewayCustomerID: strPtr(in.GatewayCustomerID),
		PaymentIntentID:   strPtr(in.PaymentIntentID),
		CustomerEmail:     strPtr(derive.NormalizeEmail(in.Email)),
		Status:            st,
		StatusAt:          &at,
		Currency:          derive.NormalizeCurrency(""),
		LineItems:         in.LineItems,
		HostedURL:         strPtr(in.HostedURL),
		PDFURL:            strPtr(in.PDFURL),
		DueAt:             in.DueAt,
		Metadata:          in.Metadata,
		LastEventID:       strPtr(in.Event.ID),
	}
	if t := in.Totals; t != nil {
		invoice.Currency = t.Currency
		invoice.Subtotal = t.Subtotal
		invoice.Discount = t.Discount
		invoice.Tax = t.Tax
		invoice.Shipping = t.Shipping
		invoice.Total = t.Total
	}
	if st == enums.PaymentStatusPaid {
		invoice.PaidAt = &at
	}
	if d := in.Diagnostics; d != nil {
		invoice.FailureCode = strPtr(d.Code)
		invoice.FailureMessage = strPtr(d.Message)
	}
	return invoice
}

// createInvoice inserts under a savepoint and queues invoice.created. It
// reports false when a concurrent writer already holds one of the unique keys.
func (s *Store) createInvoice(ctx context.Context, tx *gorm.DB, repo invoices.Repository, invoice *models.Invoice, ev EventRef) (bool, error) {
	err := tx.Transaction(func(inner *gorm.DB) error {
		return repo.WithTx(inner).Create(ctx, invoice)
	})
	if dbpkg.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create invoice: %w", err)
	}
	if s.outbox == nil {
		return true, nil
	}
	err = s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventInvoiceCreated,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   invoice.ID,
		Source:        &outbox.SourceRef{GatewayEventID: ev.ID, GatewayEventType: ev.Type},
		Version:       1,
		OccurredAt:    s.occurredAt(ev),
		Data: payloads.InvoiceCreatedEvent{
			InvoiceID:     invoice.ID,
			InvoiceNumber: invoice.InvoiceNumber,
			OrderID:       invoice.OrderID,
			Total:         invoice.Total,
			Currency:      invoice.Currency,
		},
	})
	if err != nil {
		return false, fmt.Errorf("emit invoice created: %w", err)
	}
	return true, nil
}

func (s *Store) invoiceUpdates(current *models.Invoice, in InvoiceInput, outcome status.Outcome) (map[string]any, error) {
	apply := outcome.Decision == status.DecisionApply
	updates := map[string]any{}
	if in.Event.ID != "" {
		updates["last_event_id"] = in.Event.ID
	}
	if apply && outcome.Status != current.Status {
		at := laterOf(current.StatusAt, s.occurredAt(in.Event))
		updates["status"] = outcome.Status
		updates["status_at"] = at
		if outcome.Status == enums.PaymentStatusPaid && current.PaidAt == nil {
			updates["paid_at"] = at
		}
	}

	fill(updates, "gateway_invoice_id", current.GatewayInvoiceID, in.GatewayInvoiceID)
	fill(updates, "gateway_customer_id", current.GatewayCustomerID, in.GatewayCustomerID)
	fill(updates, "payment_intent_id", current.PaymentIntentID, in.PaymentIntentID)
	fill(updates, "customer_email", current.CustomerEmail, derive.NormalizeEmail(in.Email))
	fillUUID(updates, "order_id", current.OrderID, in.OrderID)
	fillUUID(updates, "customer_id", current.CustomerID, in.CustomerID)
	forceCard(updates, "hosted_url", current.HostedURL, in.HostedURL, apply)
	forceCard(updates, "pdf_url", current.PDFURL, in.PDFURL, apply)
	if in.DueAt != nil && current.DueAt == nil {
		updates["due_at"] = *in.DueAt
	}
	if in.Diagnostics != nil {
		for k, v := range status.FillDiagnostics(current.FailureCode, current.FailureMessage, *in.Diagnostics, in.ForceDiagnostics) {
			updates[k] = v
		}
	}
	if t := in.Totals; t != nil && (apply || current.Total.IsZero()) {
		updates["currency"] = t.Currency
		updates["subtotal"] = t.Subtotal
		updates["discount"] = t.Discount
		updates["tax"] = t.Tax
		updates["shipping"] = t.Shipping
		updates["total"] = t.Total
	}
	if len(in.LineItems) > 0 && (apply || len(current.LineItems) == 0) {
		items, err := jsonColumn(in.LineItems)
		if err != nil {
			return nil, fmt.Errorf("encode line items: %w", err)
		}
		updates["line_items"] = items
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

func (s *Store) finishInvoice(ctx context.Context, tx *gorm.DB, res *InvoiceResult, in InvoiceInput) (*InvoiceResult, error) {
	invoice := res.Invoice
	note := in.Note
	if res.Outcome.Decision == status.DecisionRestrict && in.Status != "" && note.Message == "" {
		note.Message = fmt.Sprintf("%s not applied (%s)", in.Status, res.Outcome.Reason)
	}
	if note.Currency == "" {
		note.Currency = invoice.Currency
	}
	journaled, err := s.record(ctx, tx, enums.JournalEntityInvoice, invoice.ID, in.Event, string(invoice.Status), note)
	if err != nil {
		return nil, fmt.Errorf("journal invoice: %w", err)
	}
	res.Journaled = journaled
	return res, nil
}

// ensureInvoice returns the order's invoice, creating and linking one from
// the order snapshot when none exists yet.
func (s *Store) ensureInvoice(ctx context.Context, tx *gorm.DB, order *models.Order, in OrderInput) (*models.Invoice, bool, error) {
	repo := s.invoices.WithTx(tx)
	existing, err := s.orderInvoice(ctx, repo, order)
	if err != nil {
		return nil, false, err
	}
	number := derive.SanitizeInvoiceNumber(in.InvoiceNumber)
	if existing == nil && number != "" {
		existing, number, err = claimByNumber(ctx, repo, number, order.ID)
		if err != nil {
			return nil, false, err
		}
	}
	created := false
	if existing == nil {
		total := order.Total
		invoice := &models.Invoice{
			InvoiceNumber:     number,
			OrderID:           &order.ID,
			CustomerID:        order.CustomerID,
			GatewayCustomerID: order.GatewayCustomerID,
			PaymentIntentID:   order.PaymentIntentID,
			CustomerEmail:     order.CustomerEmail,
			Status:            invoiceStatusFor(order.PaymentStatus),
			StatusAt:          order.PaymentStatusAt,
			Currency:          order.Currency,
			Subtotal:          order.Subtotal,
			Discount:          order.Discount,
			Tax:               order.Tax,
			Shipping:          order.Shipping,
			Total:             total,
			LineItems:         order.Cart,
			LastEventID:       strPtr(in.Event.ID),
		}
		if invoice.InvoiceNumber == "" {
			invoice.InvoiceNumber = derive.NewInvoiceNumber(s.now())
		}
		if invoice.Status == enums.PaymentStatusPaid {
			at := s.occurredAt(in.Event)
			invoice.PaidAt = &at
		}
		ok, err := s.createInvoice(ctx, tx, repo, invoice, in.Event)
		if err != nil {
			return nil, false, err
		}
		if ok {
			existing, created = invoice, true
		} else if existing, err = invoiceAfterRace(ctx, repo, order.ID, invoice.InvoiceNumber); err != nil {
			return nil, false, err
		}
	}

	if order.InvoiceID == nil || *order.InvoiceID != existing.ID {
		if err := s.orders.WithTx(tx).Update(ctx, order.ID, map[string]any{"invoice_id": existing.ID}); err != nil {
			return nil, false, fmt.Errorf("link invoice: %w", err)
		}
		order.InvoiceID = &existing.ID
	}
	if created {
		note := Note{Label: "invoice created", Amount: amountPtr(existing.Total), Currency: existing.Currency}
		if _, err := s.record(ctx, tx, enums.JournalEntityInvoice, existing.ID, in.Event, string(existing.Status), note); err != nil {
			return nil, false, fmt.Errorf("journal invoice: %w", err)
		}
	}
	return existing, created, nil
}

// claimByNumber finds the invoice carrying number. An unlinked invoice is
// adopted by the order; one owned by another order leaves the order to get
// a fresh number instead.
func claimByNumber(ctx context.Context, repo invoices.Repository, number string, orderID uuid.UUID) (*models.Invoice, string, error) {
	invoice, err := repo.FindByInvoiceNumber(ctx, number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, number, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("find invoice by number: %w", err)
	}
	switch {
	case invoice.OrderID == nil:
		if err := repo.Update(ctx, invoice.ID, map[string]any{"order_id": orderID}); err != nil {
			return nil, "", fmt.Errorf("adopt invoice: %w", err)
		}
		invoice.OrderID = &orderID
		return invoice, number, nil
	case *invoice.OrderID == orderID:
		return invoice, number, nil
	}
	return nil, "", nil
}

// invoiceAfterRace re-reads after a unique violation on create, by order
// first and then by the number that collided.
func invoiceAfterRace(ctx context.Context, repo invoices.Repository, orderID uuid.UUID, number string) (*models.Invoice, error) {
	invoice, err := repo.FindByOrderID(ctx, orderID)
	if err == nil {
		return invoice, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find invoice after race: %w", err)
	}
	if number != "" {
		invoice, _, err = claimByNumber(ctx, repo, number, orderID)
		if err != nil {
			return nil, err
		}
		if invoice != nil {
			return invoice, nil
		}
	}
	return nil, fmt.Errorf("find invoice after race: no invoice for order %s", orderID)
}

func (s *Store) orderInvoice(ctx context.Context, repo invoices.Repository, order *models.Order) (*models.Invoice, error) {
	var (
		invoice *models.Invoice
		err     error
	)
	if order.InvoiceID != nil {
		invoice, err = repo.FindByID(ctx, *order.InvoiceID)
	} else {
		invoice, err = repo.FindByOrderID(ctx, order.ID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order invoice: %w", err)
	}
	return invoice, nil
}

// syncInvoiceStatus mirrors an order status move onto its invoice. The
// invoice keeps its own monotonic guard, so a lost race is left alone; a
// terminal override on the order applies to the invoice too.
func (s *Store) syncInvoiceStatus(ctx context.Context, tx *gorm.DB, order *models.Order, ev EventRef, overrideTerminal bool) error {
	repo := s.invoices.WithTx(tx)
	invoice, err := s.orderInvoice(ctx, repo, order)
	if err != nil || invoice == nil {
		return err
	}
	target := invoiceStatusFor(order.PaymentStatus)
	outcome := status.Decide(status.Transition{
		Current:          invoice.Status,
		CurrentAt:        invoice.StatusAt,
		Incoming:         target,
		OccurredAt:       ev.OccurredAt,
		OverrideTerminal: overrideTerminal,
	})
	if outcome.Decision != status.DecisionApply || !outcome.Changed(invoice.Status) {
		return nil
	}
	at := laterOf(invoice.StatusAt, s.occurredAt(ev))
	updates := map[string]any{"status": outcome.Status, "status_at": at}
	if outcome.Status == enums.PaymentStatusPaid && invoice.PaidAt == nil {
		updates["paid_at"] = at
	}
	if ev.ID != "" {
		updates["last_event_id"] = ev.ID
	}
	if _, err := repo.UpdateIfStatus(ctx, invoice.ID, invoice.Status, updates); err != nil {
		return fmt.Errorf("sync invoice status: %w", err)
	}
	_, err = s.record(ctx, tx, enums.JournalEntityInvoice, invoice.ID, ev, string(outcome.Status), Note{Currency: invoice.Currency})
	return err
}

// invoiceStatusFor maps an order payment status onto the invoice. A
// disputed order leaves its invoice paid.
func invoiceStatusFor(st enums.PaymentStatus) enums.PaymentStatus {
	if st == enums.PaymentStatusDisputed {
		return enums.PaymentStatusPaid
	}
	return st
}

func amountPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
