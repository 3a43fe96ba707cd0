package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogProduct mirrors a gateway product enriched with storefront attributes
// carried in product metadata (sku, slug, list price, weight, dimensions).
type CatalogProduct struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	GatewayProductID *string           `gorm:"column:gateway_product_id;uniqueIndex:ux_catalog_products_gateway_id"`
	SKU              *string           `gorm:"column:sku;index:idx_catalog_products_sku"`
	Slug             *string           `gorm:"column:slug;index:idx_catalog_products_slug"`
	Title            string            `gorm:"column:title;not null"`
	Active           bool              `gorm:"column:active;not null"`
	DefaultPriceID   *string           `gorm:"column:default_price_id"`
	Price            *decimal.Decimal  `gorm:"column:price;type:numeric(12,2)"`
	Currency         *string           `gorm:"column:currency"`
	WeightOz         *decimal.Decimal  `gorm:"column:weight_oz;type:numeric(10,2)"`
	LengthIn         *decimal.Decimal  `gorm:"column:length_in;type:numeric(10,2)"`
	WidthIn          *decimal.Decimal  `gorm:"column:width_in;type:numeric(10,2)"`
	HeightIn         *decimal.Decimal  `gorm:"column:height_in;type:numeric(10,2)"`
	Metadata         map[string]string `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *CatalogProduct) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CatalogPrice mirrors a gateway price.
type CatalogPrice struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	GatewayPriceID   string          `gorm:"column:gateway_price_id;not null;uniqueIndex:ux_catalog_prices_gateway_id"`
	GatewayProductID *string         `gorm:"column:gateway_product_id;index:idx_catalog_prices_product"`
	UnitAmount       decimal.Decimal `gorm:"column:unit_amount;type:numeric(12,2);not null"`
	Currency         string          `gorm:"column:currency;not null"`
	Active           bool            `gorm:"column:active;not null"`
	RecurringPeriod  *string         `gorm:"column:recurring_interval"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *CatalogPrice) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
