package collaborators

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/gatewaysync/internal/collaborators/email"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

const (
	NamePackingSlip   = "packing_slip"
	NameShippingLabel = "shipping_label"
	NameEmail         = "email"
	NameFulfillment   = "fulfillment"
)

type packingSlipGenerator interface {
	Generate(ctx context.Context, orderID, invoiceID uuid.UUID) (string, error)
}

type labelSyncer interface {
	Sync(ctx context.Context, orderID uuid.UUID) error
}

type emailSender interface {
	Send(ctx context.Context, msg email.Message) error
}

type fulfillmentTrigger interface {
	Trigger(ctx context.Context, orderID uuid.UUID) error
}

type orderUpdater interface {
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type failureMetrics interface {
	IncCollaboratorFailure(collaborator string)
}

// DispatcherParams wires a Dispatcher. Every collaborator is optional; a
// nil one is skipped.
type DispatcherParams struct {
	PackingSlip   packingSlipGenerator
	ShippingLabel labelSyncer
	Email         emailSender
	Fulfillment   fulfillmentTrigger
	Orders        orderUpdater
	Metrics       failureMetrics
	Logger        *logger.Logger

	StorefrontURL string
	NotifyBCC     string
}

// Dispatcher runs the post-payment side effects for an order. It never
// returns an error to the caller; failures are counted and logged.
type Dispatcher struct {
	packingSlip   packingSlipGenerator
	shippingLabel labelSyncer
	email         emailSender
	fulfillment   fulfillmentTrigger
	orders        orderUpdater
	metrics       failureMetrics
	logg          *logger.Logger
	storefrontURL string
	bcc           []string
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	d := &Dispatcher{
		packingSlip:   p.PackingSlip,
		shippingLabel: p.ShippingLabel,
		email:         p.Email,
		fulfillment:   p.Fulfillment,
		orders:        p.Orders,
		metrics:       p.Metrics,
		logg:          p.Logger,
		storefrontURL: p.StorefrontURL,
	}
	for _, addr := range strings.Split(p.NotifyBCC, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			d.bcc = append(d.bcc, addr)
		}
	}
	return d
}

// OrderPaid runs the packing slip first so its URL is stored before the
// downstream calls fire.
func (d *Dispatcher) OrderPaid(ctx context.Context, order *models.Order, invoice *models.Invoice) {
	if d == nil || order == nil {
		return
	}
	ctx = d.logg.WithField(ctx, "order_number", order.OrderNumber)

	var errs error
	errs = multierr.Append(errs, d.run(ctx, NamePackingSlip, d.packingSlip != nil, func() error {
		return d.generatePackingSlip(ctx, order, invoice)
	}))
	errs = multierr.Append(errs, d.run(ctx, NameShippingLabel, d.shippingLabel != nil, func() error {
		return d.shippingLabel.Sync(ctx, order.ID)
	}))
	errs = multierr.Append(errs, d.run(ctx, NameEmail, d.email != nil, func() error {
		return d.sendConfirmation(ctx, order, invoice)
	}))
	errs = multierr.Append(errs, d.run(ctx, NameFulfillment, d.fulfillment != nil, func() error {
		return d.fulfillment.Trigger(ctx, order.ID)
	}))

	if errs != nil {
		d.logg.Error(ctx, "post-payment collaborators failed", errs)
		return
	}
	d.logg.Info(ctx, "post-payment collaborators done")
}

func (d *Dispatcher) run(ctx context.Context, name string, enabled bool, fn func() error) error {
	if !enabled {
		return nil
	}
	if err := fn(); err != nil {
		if d.metrics != nil {
			d.metrics.IncCollaboratorFailure(name)
		}
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"collaborator": name,
			"retryable":    pkgerrors.IsRetryable(err),
		})
		d.logg.Warn(logCtx, "collaborator call failed: "+err.Error())
		return err
	}
	return nil
}

func (d *Dispatcher) generatePackingSlip(ctx context.Context, order *models.Order, invoice *models.Invoice) error {
	invoiceID := uuid.Nil
	if invoice != nil {
		invoiceID = invoice.ID
	}
	url, err := d.packingSlip.Generate(ctx, order.ID, invoiceID)
	if err != nil {
		return err
	}
	order.PackingSlipURL = &url
	if d.orders == nil {
		return nil
	}
	return d.orders.Update(ctx, order.ID, map[string]any{"packing_slip_url": url})
}

func (d *Dispatcher) sendConfirmation(ctx context.Context, order *models.Order, invoice *models.Invoice) error {
	msg, ok, err := orderPaidEmail(order, invoice, d.storefrontURL, d.bcc)
	if err != nil {
		return err
	}
	if !ok {
		d.logg.Info(ctx, "order has no contact email; confirmation skipped")
		return nil
	}
	return d.email.Send(ctx, msg)
}
