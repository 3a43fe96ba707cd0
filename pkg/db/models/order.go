package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// Order is one purchase attempt reconciled from gateway events.
// Monetary fields are stored in the currency's major unit.
type Order struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string                   `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	CheckoutSessionID *string                  `gorm:"column:checkout_session_id;uniqueIndex:ux_orders_checkout_session_id"`
	PaymentIntentID   *string                  `gorm:"column:payment_intent_id;uniqueIndex:ux_orders_payment_intent_id"`
	ChargeID          *string                  `gorm:"column:charge_id;uniqueIndex:ux_orders_charge_id"`
	PaymentLinkID     *string                  `gorm:"column:payment_link_id"`
	GatewayCustomerID *string                  `gorm:"column:gateway_customer_id"`
	CustomerID        *uuid.UUID               `gorm:"column:customer_id;type:uuid"`
	InvoiceID         *uuid.UUID               `gorm:"column:invoice_id;type:uuid"`
	QuoteID           *uuid.UUID               `gorm:"column:quote_id;type:uuid"`
	CustomerEmail     *string                  `gorm:"column:customer_email"`
	CustomerName      *string                  `gorm:"column:customer_name"`
	CustomerPhone     *string                  `gorm:"column:customer_phone"`
	PaymentStatus     enums.PaymentStatus      `gorm:"column:payment_status;not null"`
	PaymentStatusAt   *time.Time               `gorm:"column:payment_status_at"`
	FulfillmentStatus enums.FulfillmentStatus  `gorm:"column:fulfillment_status;not null"`
	Currency          string                   `gorm:"column:currency;not null"`
	Subtotal          decimal.Decimal          `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount          decimal.Decimal          `gorm:"column:discount;type:numeric(12,2);not null"`
	SaleDiscount      decimal.Decimal          `gorm:"column:sale_discount;type:numeric(12,2);not null"`
	Tax               decimal.Decimal          `gorm:"column:tax;type:numeric(12,2);not null"`
	Shipping          decimal.Decimal          `gorm:"column:shipping;type:numeric(12,2);not null"`
	Total             decimal.Decimal          `gorm:"column:total;type:numeric(12,2);not null"`
	TotalAdjustment   decimal.Decimal          `gorm:"column:total_adjustment;type:numeric(12,2);not null"`
	AmountRefunded    decimal.Decimal          `gorm:"column:amount_refunded;type:numeric(12,2);not null"`
	Cart              []types.CartItem         `gorm:"column:cart;type:jsonb;serializer:json"`
	Package           *types.PackageDimensions `gorm:"column:package;type:jsonb;serializer:json"`
	ShippingAddress   *types.Address           `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress    *types.Address           `gorm:"column:billing_address;type:jsonb;serializer:json"`
	CardBrand         *string                  `gorm:"column:card_brand"`
	CardLast4         *string                  `gorm:"column:card_last4"`
	ReceiptURL        *string                  `gorm:"column:receipt_url"`
	FailureCode       *string                  `gorm:"column:failure_code"`
	FailureMessage    *string                  `gorm:"column:failure_message"`
	PackingSlipURL    *string                  `gorm:"column:packing_slip_url"`
	Metadata          map[string]string        `gorm:"column:metadata;type:jsonb;serializer:json"`
	LastEventID       *string                  `gorm:"column:last_event_id"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
