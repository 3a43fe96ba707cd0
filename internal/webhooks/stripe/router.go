// Package stripewebhook routes verified gateway events to the reconciliation
// handlers and records every outcome in the webhook log.
package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	analyticstypes "github.com/angelmondragon/gatewaysync/internal/analytics/types"
	"github.com/angelmondragon/gatewaysync/internal/cart"
	"github.com/angelmondragon/gatewaysync/internal/catalog"
	"github.com/angelmondragon/gatewaysync/internal/financials"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/resolver"
	"github.com/angelmondragon/gatewaysync/internal/upsert"
	"github.com/angelmondragon/gatewaysync/internal/webhooklog"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

// Notifier receives orders that just moved into paid.
type Notifier interface {
	OrderPaid(ctx context.Context, order *models.Order, invoice *models.Invoice)
}

// Reporter ships one analytics row per processed event.
type Reporter interface {
	Report(ctx context.Context, row analyticstypes.WebhookEventRow) error
}

// Metrics observes webhook outcomes.
type Metrics interface {
	ObserveWebhookEvent(eventType, status string, elapsed time.Duration)
}

// Deps wires a Router. Store, Resolver, Normalizer, Financials and Log are
// required; everything else is optional.
type Deps struct {
	Store      *upsert.Store
	Resolver   *resolver.Resolver
	Normalizer *cart.Normalizer
	Financials *financials.Reconciler
	Catalog    *catalog.Service
	Log        webhooklog.Repository
	Fetcher    Fetcher
	Notifier   Notifier
	Reporter   Reporter
	Metrics    Metrics
	Logger     *logger.Logger
	Now        func() time.Time
}

// ProcessOptions tunes a single Process call.
type ProcessOptions struct {
	// Replay marks a re-run of a stored payload.
	Replay bool
}

// Result is what Process did with one event.
type Result struct {
	EventID   string
	EventType enums.GatewayEventType
	Status    enums.WebhookEventStatus
	Message   string
	Attempt   int
	OrderID   *uuid.UUID
	InvoiceID *uuid.UUID
	// Err is set when Status is error. It never needs to reach the gateway.
	Err error
}

// outcome is a handler's report back to Process.
type outcome struct {
	status  enums.WebhookEventStatus
	message string
	order   *models.Order
	invoice *models.Invoice
}

func processed(order *models.Order, invoice *models.Invoice) *outcome {
	return &outcome{status: enums.WebhookEventStatusProcessed, order: order, invoice: invoice}
}

func skipped(format string, args ...any) *outcome {
	return &outcome{status: enums.WebhookEventStatusSkipped, message: fmt.Sprintf(format, args...)}
}

type handler func(ctx context.Context, ev gateway.Event, payload gateway.Payload) (*outcome, error)

// Router is the dispatch table from event type to handler.
type Router struct {
	store      *upsert.Store
	resolver   *resolver.Resolver
	normalizer *cart.Normalizer
	financials *financials.Reconciler
	catalog    *catalog.Service
	log        webhooklog.Repository
	fetcher    Fetcher
	notifier   Notifier
	reporter   Reporter
	metrics    Metrics
	logg       *logger.Logger
	now        func() time.Time

	handlers map[enums.GatewayEventType]handler
}

func NewRouter(deps Deps) (*Router, error) {
	switch {
	case deps.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "upsert store required")
	case deps.Resolver == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "resolver required")
	case deps.Normalizer == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart normalizer required")
	case deps.Financials == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "financial reconciler required")
	case deps.Log == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook log required")
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	r := &Router{
		store:      deps.Store,
		resolver:   deps.Resolver,
		normalizer: deps.Normalizer,
		financials: deps.Financials,
		catalog:    deps.Catalog,
		log:        deps.Log,
		fetcher:    deps.Fetcher,
		notifier:   deps.Notifier,
		reporter:   deps.Reporter,
		metrics:    deps.Metrics,
		logg:       deps.Logger,
		now:        now,
	}
	r.handlers = map[enums.GatewayEventType]handler{
		enums.EventCheckoutSessionCompleted:             r.handleCheckoutSession,
		enums.EventCheckoutSessionAsyncPaymentSucceeded: r.handleCheckoutSession,
		enums.EventCheckoutSessionAsyncPaymentFailed:    r.handleCheckoutSession,
		enums.EventCheckoutSessionExpired:               r.handleCheckoutSession,

		enums.EventPaymentIntentSucceeded:               r.handlePaymentIntent,
		enums.EventPaymentIntentPaymentFailed:           r.handlePaymentIntent,
		enums.EventPaymentIntentCanceled:                r.handlePaymentIntent,
		enums.EventPaymentIntentProcessing:              r.handlePaymentIntent,
		enums.EventPaymentIntentAmountCapturableUpdated: r.handlePaymentIntent,

		enums.EventChargeSucceeded: r.handleCharge,
		enums.EventChargeFailed:    r.handleCharge,
		enums.EventChargeRefunded:  r.handleCharge,
		enums.EventChargeCaptured:  r.handleCharge,

		enums.EventChargeDisputeCreated:         r.handleDispute,
		enums.EventChargeDisputeClosed:          r.handleDispute,
		enums.EventChargeDisputeFundsReinstated: r.handleDispute,

		enums.EventInvoiceFinalized:           r.handleInvoice,
		enums.EventInvoicePaid:                r.handleInvoice,
		enums.EventInvoicePaymentFailed:       r.handleInvoice,
		enums.EventInvoiceVoided:              r.handleInvoice,
		enums.EventInvoiceMarkedUncollectible: r.handleInvoice,

		enums.EventCustomerCreated: r.handleCustomer,
		enums.EventCustomerUpdated: r.handleCustomer,

		enums.EventQuoteCreated:   r.handleQuote,
		enums.EventQuoteFinalized: r.handleQuote,
		enums.EventQuoteAccepted:  r.handleQuote,
		enums.EventQuoteCanceled:  r.handleQuote,

		enums.EventPaymentLinkCreated: r.handlePaymentLink,
		enums.EventPaymentLinkUpdated: r.handlePaymentLink,

		enums.EventProductCreated: r.handleProduct,
		enums.EventProductUpdated: r.handleProduct,
		enums.EventProductDeleted: r.handleProduct,
		enums.EventPriceCreated:   r.handlePrice,
		enums.EventPriceUpdated:   r.handlePrice,
		enums.EventPriceDeleted:   r.handlePrice,
	}
	return r, nil
}

// Handles reports whether the event type has a handler.
func (r *Router) Handles(eventType enums.GatewayEventType) bool {
	_, ok := r.handlers[eventType]
	return ok
}

// Process runs one event to completion. It never returns an error: handler
// failures, panics included, end up in the webhook log with status error
// and in Result.Err.
func (r *Router) Process(ctx context.Context, ev gateway.Event, opts ProcessOptions) Result {
	ctx = r.logg.WithEvent(ctx, ev.ID, string(ev.Type))
	if opts.Replay {
		ctx = r.logg.WithField(ctx, "replay", true)
	}
	started := r.now()

	result := Result{EventID: ev.ID, EventType: ev.Type}
	attempt, err := r.log.Begin(ctx, &models.WebhookEvent{
		EventID:    ev.ID,
		Type:       string(ev.Type),
		Payload:    datatypes.JSON(ev.Raw),
		Livemode:   ev.Livemode,
		OccurredAt: ev.OccurredAt,
	})
	if err != nil {
		r.logg.Error(ctx, "failed to record webhook event", err)
	}
	result.Attempt = attempt

	out, err := r.dispatch(ctx, ev)
	switch {
	case err != nil:
		result.Status = enums.WebhookEventStatusError
		result.Message = err.Error()
		result.Err = err
		r.logg.Error(ctx, "webhook event failed", err)
	case out == nil:
		result.Status = enums.WebhookEventStatusProcessed
	default:
		result.Status = out.status
		result.Message = out.message
		if out.order != nil {
			result.OrderID = &out.order.ID
		}
		if out.invoice != nil {
			result.InvoiceID = &out.invoice.ID
		}
	}
	if result.Status == enums.WebhookEventStatusSkipped {
		r.logg.Info(ctx, "webhook event skipped: "+result.Message)
	}

	finish := webhooklog.Outcome{
		Status:    result.Status,
		Message:   result.Message,
		OrderID:   result.OrderID,
		InvoiceID: result.InvoiceID,
	}
	if err := r.log.Finish(ctx, ev.ID, finish); err != nil {
		r.logg.Error(ctx, "failed to finish webhook event", err)
	}

	elapsed := r.now().Sub(started)
	if r.metrics != nil {
		r.metrics.ObserveWebhookEvent(string(ev.Type), string(result.Status), elapsed)
	}
	r.report(ctx, ev, result, out)
	return result
}

func (r *Router) dispatch(ctx context.Context, ev gateway.Event) (out *outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logg.Warn(r.logg.WithField(ctx, "panic_stack", string(debug.Stack())), "recovered panic in webhook handler")
			out, err = nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("handler panic: %v", rec))
		}
	}()

	handle, ok := r.handlers[ev.Type]
	if !ok {
		return skipped("unhandled event type %s", ev.Type), nil
	}
	payload, err := ev.Payload()
	if err != nil {
		if errors.Is(err, gateway.ErrMissingObject) {
			return skipped("event has no data object"), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event payload")
	}
	return handle(ctx, ev, payload)
}

func (r *Router) report(ctx context.Context, ev gateway.Event, result Result, out *outcome) {
	if r.reporter == nil {
		return
	}
	row := analyticstypes.WebhookEventRow{
		EventID:     ev.ID,
		EventType:   string(ev.Type),
		Status:      string(result.Status),
		Attempt:     int64(result.Attempt),
		Livemode:    ev.Livemode,
		OccurredAt:  ev.OccurredAt,
		ProcessedAt: r.now(),
	}
	if result.Message != "" {
		row.Message = &result.Message
	}
	if result.OrderID != nil {
		id := result.OrderID.String()
		row.OrderID = &id
	}
	if result.InvoiceID != nil {
		id := result.InvoiceID.String()
		row.InvoiceID = &id
	}
	if out != nil && out.order != nil {
		row.SetTotal(out.order.Total, out.order.Currency)
	} else if out != nil && out.invoice != nil {
		row.SetTotal(out.invoice.Total, out.invoice.Currency)
	}
	if err := r.reporter.Report(ctx, row); err != nil {
		r.logg.Warn(ctx, fmt.Sprintf("analytics report failed: %v", err))
	}
}

func (r *Router) eventRef(ev gateway.Event) upsert.EventRef {
	return upsert.EventRef{ID: ev.ID, Type: string(ev.Type), OccurredAt: ev.OccurredAt}
}

// notifyPaid fans out to collaborators after the order moved into paid.
// The upsert has already committed.
func (r *Router) notifyPaid(ctx context.Context, res *upsert.OrderResult) {
	if r.notifier == nil || !res.EnteredPaid() {
		return
	}
	r.notifier.OrderPaid(r.logg.WithOrderID(ctx, res.Order.ID.String()), res.Order, res.Invoice)
}

func unexpectedPayload(ev gateway.Event, payload gateway.Payload) error {
	return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unexpected payload %T for %s", payload, ev.Type))
}
