package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentLink mirrors a gateway-hosted payment link.
type PaymentLink struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	GatewayPaymentLinkID string            `gorm:"column:gateway_payment_link_id;not null;uniqueIndex:ux_payment_links_gateway_id"`
	URL                  string            `gorm:"column:url;not null"`
	Active               bool              `gorm:"column:active;not null"`
	Currency             *string           `gorm:"column:currency"`
	QuoteID              *uuid.UUID        `gorm:"column:quote_id;type:uuid"`
	Metadata             map[string]string `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentLink) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
