package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// Invoice is the billing record for an order. It is created once and then only patched.
type Invoice struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber     string              `gorm:"column:invoice_number;not null;uniqueIndex:ux_invoices_invoice_number"`
	GatewayInvoiceID  *string             `gorm:"column:gateway_invoice_id;uniqueIndex:ux_invoices_gateway_invoice_id"`
	OrderID           *uuid.UUID          `gorm:"column:order_id;type:uuid;uniqueIndex:ux_invoices_order_id"`
	CustomerID        *uuid.UUID          `gorm:"column:customer_id;type:uuid"`
	GatewayCustomerID *string             `gorm:"column:gateway_customer_id"`
	PaymentIntentID   *string             `gorm:"column:payment_intent_id"`
	CustomerEmail     *string             `gorm:"column:customer_email"`
	Status            enums.PaymentStatus `gorm:"column:status;not null"`
	StatusAt          *time.Time          `gorm:"column:status_at"`
	Currency          string              `gorm:"column:currency;not null"`
	Subtotal          decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount          decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	Tax               decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	Shipping          decimal.Decimal     `gorm:"column:shipping;type:numeric(12,2);not null"`
	Total             decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	LineItems         []types.CartItem    `gorm:"column:line_items;type:jsonb;serializer:json"`
	FailureCode       *string             `gorm:"column:failure_code"`
	FailureMessage    *string             `gorm:"column:failure_message"`
	HostedURL         *string             `gorm:"column:hosted_url"`
	PDFURL            *string             `gorm:"column:pdf_url"`
	DueAt             *time.Time          `gorm:"column:due_at"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	Metadata          map[string]string   `gorm:"column:metadata;type:jsonb;serializer:json"`
	LastEventID       *string             `gorm:"column:last_event_id"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
