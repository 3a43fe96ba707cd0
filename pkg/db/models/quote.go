package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// Quote mirrors a gateway quote and its link to the order it became.
type Quote struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	GatewayQuoteID    string            `gorm:"column:gateway_quote_id;not null;uniqueIndex:ux_quotes_gateway_quote_id"`
	QuoteNumber       *string           `gorm:"column:quote_number"`
	Status            enums.QuoteStatus `gorm:"column:status;not null"`
	CustomerID        *uuid.UUID        `gorm:"column:customer_id;type:uuid"`
	GatewayCustomerID *string           `gorm:"column:gateway_customer_id"`
	OrderID           *uuid.UUID        `gorm:"column:order_id;type:uuid"`
	Currency          string            `gorm:"column:currency;not null"`
	Subtotal          decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Total             decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	LineItems         []types.CartItem  `gorm:"column:line_items;type:jsonb;serializer:json"`
	ExpiresAt         *time.Time        `gorm:"column:expires_at"`
	AcceptedAt        *time.Time        `gorm:"column:accepted_at"`
	Metadata          map[string]string `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (q *Quote) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
