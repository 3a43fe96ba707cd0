// Package bootstrap assembles the reconciliation engine shared by the API
// and the cron worker.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/analytics/writer"
	"github.com/angelmondragon/gatewaysync/internal/cart"
	"github.com/angelmondragon/gatewaysync/internal/catalog"
	"github.com/angelmondragon/gatewaysync/internal/collaborators"
	"github.com/angelmondragon/gatewaysync/internal/collaborators/email"
	"github.com/angelmondragon/gatewaysync/internal/customers"
	"github.com/angelmondragon/gatewaysync/internal/financials"
	"github.com/angelmondragon/gatewaysync/internal/invoices"
	"github.com/angelmondragon/gatewaysync/internal/journal"
	"github.com/angelmondragon/gatewaysync/internal/orders"
	"github.com/angelmondragon/gatewaysync/internal/paymentlinks"
	"github.com/angelmondragon/gatewaysync/internal/quotes"
	"github.com/angelmondragon/gatewaysync/internal/resolver"
	"github.com/angelmondragon/gatewaysync/internal/upsert"
	"github.com/angelmondragon/gatewaysync/internal/webhooklog"
	stripewebhook "github.com/angelmondragon/gatewaysync/internal/webhooks/stripe"
	pkgbigquery "github.com/angelmondragon/gatewaysync/pkg/bigquery"
	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/metrics"
	"github.com/angelmondragon/gatewaysync/pkg/outbox"
	pkgstripe "github.com/angelmondragon/gatewaysync/pkg/stripe"
)

type Params struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *gorm.DB
	Metrics *metrics.WebhookMetrics
}

// Engine is a wired event router plus the clients it owns.
type Engine struct {
	Router     *stripewebhook.Router
	WebhookLog webhooklog.Repository
	Stripe     *pkgstripe.Client
	// BigQuery is nil when analytics is not configured.
	BigQuery *pkgbigquery.Client

	analytics *writer.BigQueryWriter
	logg      *logger.Logger
}

func NewEngine(ctx context.Context, p Params) (*Engine, error) {
	if p.Config == nil || p.DB == nil {
		return nil, fmt.Errorf("config and db are required")
	}
	cfg, db, logg := p.Config, p.DB, p.Logger

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, fmt.Errorf("stripe client: %w", err)
	}

	orderRepo := orders.NewRepository(db)
	invoiceRepo := invoices.NewRepository(db)
	customerRepo := customers.NewRepository(db)
	quoteRepo := quotes.NewRepository(db)
	linkRepo := paymentlinks.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	logRepo := webhooklog.NewRepository(db)

	journalSvc, err := journal.NewService(journal.NewRepository(db))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	store, err := upsert.NewStore(upsert.Deps{
		DB:           db,
		Orders:       orderRepo,
		Invoices:     invoiceRepo,
		Customers:    customerRepo,
		Quotes:       quoteRepo,
		PaymentLinks: linkRepo,
		Journal:      journalSvc,
		Outbox:       outbox.NewService(outbox.NewRepository(db), logg),
		Logger:       logg,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert store: %w", err)
	}
	res, err := resolver.New(resolver.Repositories{
		Orders:       orderRepo,
		Invoices:     invoiceRepo,
		Customers:    customerRepo,
		Quotes:       quoteRepo,
		PaymentLinks: linkRepo,
	})
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var rates financials.RateLookup
	if url := strings.TrimSpace(cfg.Collaborators.ShippingRateURL); url != "" {
		rateClient, err := collaborators.NewShippingRateClient(url, collaborators.WithTimeout(cfg.Collaborators.HTTPTimeout))
		if err != nil {
			return nil, err
		}
		rates = rateClient
	}

	dispatcher, err := newDispatcher(cfg, logg, orderRepo, p.Metrics)
	if err != nil {
		return nil, err
	}

	engine := &Engine{WebhookLog: logRepo, Stripe: stripeClient, logg: logg}
	deps := stripewebhook.Deps{
		Store:      store,
		Resolver:   res,
		Normalizer: cart.NewNormalizer(catalogRepo, logg),
		Financials: financials.NewReconciler(rates, logg),
		Catalog:    catalogSvc,
		Log:        logRepo,
		Fetcher:    stripewebhook.NewStripeFetcher(stripeClient),
		Notifier:   dispatcher,
		Logger:     logg,
	}
	if p.Metrics != nil {
		deps.Metrics = p.Metrics
	}
	if cfg.BigQuery.Enabled() {
		bq, err := pkgbigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			return nil, fmt.Errorf("bigquery: %w", err)
		}
		w, err := writer.New(bq, writer.Config{EventsTable: cfg.BigQuery.EventsTable})
		if err != nil {
			_ = bq.Close()
			return nil, fmt.Errorf("analytics writer: %w", err)
		}
		engine.BigQuery = bq
		engine.analytics = w
		deps.Reporter = w
	} else {
		logg.Info(ctx, "bigquery not configured; analytics rows disabled")
	}

	router, err := stripewebhook.NewRouter(deps)
	if err != nil {
		_ = engine.Close(ctx)
		return nil, err
	}
	engine.Router = router
	return engine, nil
}

// Close flushes buffered analytics rows and releases clients.
func (e *Engine) Close(ctx context.Context) error {
	if e == nil {
		return nil
	}
	var errs error
	if e.analytics != nil {
		errs = multierr.Append(errs, e.analytics.Flush(ctx))
	}
	if e.BigQuery != nil {
		errs = multierr.Append(errs, e.BigQuery.Close())
	}
	return errs
}

// newDispatcher wires only the collaborators that have an endpoint.
func newDispatcher(cfg *config.Config, logg *logger.Logger, orderRepo orders.Repository, m *metrics.WebhookMetrics) (*collaborators.Dispatcher, error) {
	c := cfg.Collaborators
	opt := collaborators.WithTimeout(c.HTTPTimeout)
	params := collaborators.DispatcherParams{
		Orders:        orderRepo,
		Logger:        logg,
		StorefrontURL: c.StorefrontBaseURL,
		NotifyBCC:     c.OrderNotifyBCC,
	}
	if m != nil {
		params.Metrics = m
	}
	if c.PackingSlipURL != "" {
		client, err := collaborators.NewPackingSlipClient(c.PackingSlipURL, opt)
		if err != nil {
			return nil, err
		}
		params.PackingSlip = client
	}
	if c.ShippingLabelURL != "" {
		client, err := collaborators.NewShippingLabelClient(c.ShippingLabelURL, opt)
		if err != nil {
			return nil, err
		}
		params.ShippingLabel = client
	}
	if c.FulfillmentURL != "" {
		client, err := collaborators.NewFulfillmentClient(c.FulfillmentURL, opt)
		if err != nil {
			return nil, err
		}
		params.Fulfillment = client
	}
	sender, err := email.NewSender(cfg.Sendgrid)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: %w", err)
	}
	if sender != nil {
		params.Email = sender
	}
	return collaborators.NewDispatcher(params), nil
}
