package enums

// GatewayEventType is the event tag delivered by the payment gateway.
type GatewayEventType string

// GatewayEventCategory groups event types that share a payload shape.
type GatewayEventCategory string

const (
	CategoryCheckoutSession GatewayEventCategory = "checkout_session"
	CategoryPaymentIntent   GatewayEventCategory = "payment_intent"
	CategoryCharge          GatewayEventCategory = "charge"
	CategoryDispute         GatewayEventCategory = "dispute"
	CategoryInvoice         GatewayEventCategory = "invoice"
	CategoryCustomer        GatewayEventCategory = "customer"
	CategoryQuote           GatewayEventCategory = "quote"
	CategoryPaymentLink     GatewayEventCategory = "payment_link"
	CategoryProduct         GatewayEventCategory = "product"
	CategoryPrice           GatewayEventCategory = "price"
)

const (
	EventCheckoutSessionCompleted             GatewayEventType = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceeded GatewayEventType = "checkout.session.async_payment_succeeded"
	EventCheckoutSessionAsyncPaymentFailed    GatewayEventType = "checkout.session.async_payment_failed"
	EventCheckoutSessionExpired               GatewayEventType = "checkout.session.expired"

	EventPaymentIntentSucceeded               GatewayEventType = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed           GatewayEventType = "payment_intent.payment_failed"
	EventPaymentIntentCanceled                GatewayEventType = "payment_intent.canceled"
	EventPaymentIntentProcessing              GatewayEventType = "payment_intent.processing"
	EventPaymentIntentAmountCapturableUpdated GatewayEventType = "payment_intent.amount_capturable_updated"

	EventChargeSucceeded GatewayEventType = "charge.succeeded"
	EventChargeFailed    GatewayEventType = "charge.failed"
	EventChargeRefunded  GatewayEventType = "charge.refunded"
	EventChargeCaptured  GatewayEventType = "charge.captured"

	EventChargeDisputeCreated         GatewayEventType = "charge.dispute.created"
	EventChargeDisputeClosed          GatewayEventType = "charge.dispute.closed"
	EventChargeDisputeFundsReinstated GatewayEventType = "charge.dispute.funds_reinstated"

	EventInvoiceFinalized           GatewayEventType = "invoice.finalized"
	EventInvoicePaid                GatewayEventType = "invoice.paid"
	EventInvoicePaymentFailed       GatewayEventType = "invoice.payment_failed"
	EventInvoiceVoided              GatewayEventType = "invoice.voided"
	EventInvoiceMarkedUncollectible GatewayEventType = "invoice.marked_uncollectible"

	EventCustomerCreated GatewayEventType = "customer.created"
	EventCustomerUpdated GatewayEventType = "customer.updated"

	EventQuoteCreated   GatewayEventType = "quote.created"
	EventQuoteFinalized GatewayEventType = "quote.finalized"
	EventQuoteAccepted  GatewayEventType = "quote.accepted"
	EventQuoteCanceled  GatewayEventType = "quote.canceled"

	EventPaymentLinkCreated GatewayEventType = "payment_link.created"
	EventPaymentLinkUpdated GatewayEventType = "payment_link.updated"

	EventProductCreated GatewayEventType = "product.created"
	EventProductUpdated GatewayEventType = "product.updated"
	EventProductDeleted GatewayEventType = "product.deleted"
	EventPriceCreated   GatewayEventType = "price.created"
	EventPriceUpdated   GatewayEventType = "price.updated"
	EventPriceDeleted   GatewayEventType = "price.deleted"
)

var gatewayEventCategories = map[GatewayEventType]GatewayEventCategory{
	EventCheckoutSessionCompleted:             CategoryCheckoutSession,
	EventCheckoutSessionAsyncPaymentSucceeded: CategoryCheckoutSession,
	EventCheckoutSessionAsyncPaymentFailed:    CategoryCheckoutSession,
	EventCheckoutSessionExpired:               CategoryCheckoutSession,

	EventPaymentIntentSucceeded:               CategoryPaymentIntent,
	EventPaymentIntentPaymentFailed:           CategoryPaymentIntent,
	EventPaymentIntentCanceled:                CategoryPaymentIntent,
	EventPaymentIntentProcessing:              CategoryPaymentIntent,
	EventPaymentIntentAmountCapturableUpdated: CategoryPaymentIntent,

	EventChargeSucceeded: CategoryCharge,
	EventChargeFailed:    CategoryCharge,
	EventChargeRefunded:  CategoryCharge,
	EventChargeCaptured:  CategoryCharge,

	EventChargeDisputeCreated:         CategoryDispute,
	EventChargeDisputeClosed:          CategoryDispute,
	EventChargeDisputeFundsReinstated: CategoryDispute,

	EventInvoiceFinalized:           CategoryInvoice,
	EventInvoicePaid:                CategoryInvoice,
	EventInvoicePaymentFailed:       CategoryInvoice,
	EventInvoiceVoided:              CategoryInvoice,
	EventInvoiceMarkedUncollectible: CategoryInvoice,

	EventCustomerCreated: CategoryCustomer,
	EventCustomerUpdated: CategoryCustomer,

	EventQuoteCreated:   CategoryQuote,
	EventQuoteFinalized: CategoryQuote,
	EventQuoteAccepted:  CategoryQuote,
	EventQuoteCanceled:  CategoryQuote,

	EventPaymentLinkCreated: CategoryPaymentLink,
	EventPaymentLinkUpdated: CategoryPaymentLink,

	EventProductCreated: CategoryProduct,
	EventProductUpdated: CategoryProduct,
	EventProductDeleted: CategoryProduct,
	EventPriceCreated:   CategoryPrice,
	EventPriceUpdated:   CategoryPrice,
	EventPriceDeleted:   CategoryPrice,
}

// String implements fmt.Stringer.
func (t GatewayEventType) String() string {
	return string(t)
}

// IsValid reports whether the event type is one the router understands.
func (t GatewayEventType) IsValid() bool {
	_, ok := gatewayEventCategories[t]
	return ok
}

// Category returns the payload family for the event type; ok is false for unknown tags.
func (t GatewayEventType) Category() (GatewayEventCategory, bool) {
	category, ok := gatewayEventCategories[t]
	return category, ok
}
