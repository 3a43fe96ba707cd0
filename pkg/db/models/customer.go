package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/types"
)

// Customer is keyed by lower-cased email and optionally by the gateway customer id.
type Customer struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Email             *string           `gorm:"column:email;uniqueIndex:ux_customers_email"`
	GatewayCustomerID *string           `gorm:"column:gateway_customer_id;uniqueIndex:ux_customers_gateway_customer_id"`
	Name              *string           `gorm:"column:name"`
	Phone             *string           `gorm:"column:phone"`
	ShippingAddress   *types.Address    `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress    *types.Address    `gorm:"column:billing_address;type:jsonb;serializer:json"`
	Metadata          map[string]string `gorm:"column:metadata;type:jsonb;serializer:json"`
	LastSeenAt        *time.Time        `gorm:"column:last_seen_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
