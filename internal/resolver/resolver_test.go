package resolver

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gatewaysync/internal/customers"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/internal/invoices"
	"github.com/angelmondragon/gatewaysync/internal/orders"
	"github.com/angelmondragon/gatewaysync/internal/paymentlinks"
	"github.com/angelmondragon/gatewaysync/internal/quotes"
	"github.com/angelmondragon/gatewaysync/pkg/db/dbtest"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

type fixture struct {
	resolver  *Resolver
	orders    orders.Repository
	invoices  invoices.Repository
	customers customers.Repository
	quotes    quotes.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := fixture{
		orders:    orders.NewRepository(conn),
		invoices:  invoices.NewRepository(conn),
		customers: customers.NewRepository(conn),
		quotes:    quotes.NewRepository(conn),
	}
	r, err := New(Repositories{
		Orders:       f.orders,
		Invoices:     f.invoices,
		Customers:    f.customers,
		Quotes:       f.quotes,
		PaymentLinks: paymentlinks.NewRepository(conn),
	})
	require.NoError(t, err)
	f.resolver = r
	return f
}

func (f fixture) createOrder(t *testing.T, number string, mutate func(*models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:       number,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusUnfulfilled,
		Currency:          "USD",
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, f.orders.Create(context.Background(), order))
	return order
}

func ptr(s string) *string { return &s }

func TestResolveOrderMetadataIDBeatsBusinessNumber(t *testing.T) {
	f := newFixture(t)
	byID := f.createOrder(t, "ORD-241017-000001", nil)
	byNumber := f.createOrder(t, "ORD-241017-000002", nil)

	refs := gateway.Refs{OrderID: byID.ID.String(), OrderNumber: "ord 241017-000002"}
	match, err := f.resolver.ResolveOrder(context.Background(), enums.CategoryCheckoutSession, refs)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, byID.ID, match.ID)
	assert.Equal(t, StrategyMetadataID, match.Strategy)
	assert.NotEqual(t, byNumber.ID, match.ID)
}

func TestResolveOrderFallsThroughUnknownMetadataID(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "ORD-241017-000003", nil)

	refs := gateway.Refs{OrderID: uuid.NewString(), OrderNumber: "#ORD-241017-000003"}
	match, err := f.resolver.ResolveOrder(context.Background(), enums.CategoryCheckoutSession, refs)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, order.ID, match.ID)
	assert.Equal(t, StrategyBusinessNumber, match.Strategy)
}

func TestResolveOrderByPrimaryGatewayID(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "ORD-4", func(o *models.Order) { o.PaymentIntentID = ptr("pi_4") })

	match, err := f.resolver.ResolveOrder(context.Background(), enums.CategoryPaymentIntent, gateway.Refs{PaymentIntentID: "pi_4"})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, order.ID, match.ID)
	assert.Equal(t, StrategyGatewayID, match.Strategy)
}

func TestResolveOrderByAccumulatedTransactionIDs(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "ORD-5", func(o *models.Order) { o.CheckoutSessionID = ptr("cs_5") })

	// a charge event only carries the charge and the payment intent
	refs := gateway.Refs{ChargeID: "ch_5", PaymentIntentID: "pi_5", CheckoutSessionID: "cs_5"}
	match, err := f.resolver.ResolveOrder(context.Background(), enums.CategoryCharge, refs)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, order.ID, match.ID)
	assert.Equal(t, StrategyTransactionIDs, match.Strategy)
}

func TestResolveOrderMiss(t *testing.T) {
	f := newFixture(t)
	match, err := f.resolver.ResolveOrder(context.Background(), enums.CategoryDispute, gateway.Refs{ChargeID: "ch_none"})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestResolveInvoiceByLinkedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := uuid.New()
	invoice := &models.Invoice{InvoiceNumber: "INV-1", OrderID: &orderID, Status: enums.PaymentStatusPaid, Currency: "USD"}
	require.NoError(t, f.invoices.Create(ctx, invoice))

	match, err := f.resolver.ResolveInvoice(ctx, gateway.Refs{GatewayInvoiceID: "in_unknown"}, &orderID)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, invoice.ID, match.ID)
	assert.Equal(t, StrategyLinkedOrder, match.Strategy)

	match, err = f.resolver.ResolveInvoice(ctx, gateway.Refs{InvoiceNumber: "inv 1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, StrategyBusinessNumber, match.Strategy)
}

func TestResolveCustomerPrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	byGateway := &models.Customer{Email: ptr("first@example.com"), GatewayCustomerID: ptr("cus_1")}
	byEmail := &models.Customer{Email: ptr("second@example.com")}
	require.NoError(t, f.customers.Create(ctx, byGateway))
	require.NoError(t, f.customers.Create(ctx, byEmail))

	match, err := f.resolver.ResolveCustomer(ctx, gateway.Refs{GatewayCustomerID: "cus_1", Email: "SECOND@example.com"})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, byGateway.ID, match.ID)

	match, err = f.resolver.ResolveCustomer(ctx, gateway.Refs{Email: "SECOND@example.com"})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, byEmail.ID, match.ID)
	assert.Equal(t, StrategyEmail, match.Strategy)
}

func TestResolveQuoteByGatewayID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quote := &models.Quote{GatewayQuoteID: "qt_1", Status: enums.QuoteStatusOpen, Currency: "USD"}
	require.NoError(t, f.quotes.Create(ctx, quote))

	match, err := f.resolver.ResolveQuote(ctx, gateway.Refs{GatewayQuoteID: "qt_1", QuoteID: "not-a-uuid"})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, quote.ID, match.ID)
}

func TestNewRequiresCoreRepositories(t *testing.T) {
	_, err := New(Repositories{})
	assert.Error(t, err)
}
