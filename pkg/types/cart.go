package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is the canonical line item stored on orders and invoices.
// Amounts are in the currency's major unit.
type CartItem struct {
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Options   []string        `json:"options,omitempty"`

	ProductID        *uuid.UUID `json:"product_id,omitempty"`
	ProductSlug      string     `json:"product_slug,omitempty"`
	GatewayProductID string     `json:"gateway_product_id,omitempty"`
	GatewayPriceID   string     `json:"gateway_price_id,omitempty"`
	MatchedBy        string     `json:"matched_by,omitempty"`

	// ListPrice is the catalog price when it exceeds UnitPrice.
	ListPrice *decimal.Decimal `json:"list_price,omitempty"`
	WeightOz  decimal.Decimal  `json:"weight_oz,omitempty"`
}

// PackageDimensions aggregates the shipping footprint of a cart.
type PackageDimensions struct {
	WeightOz decimal.Decimal `json:"weight_oz"`
	LengthIn decimal.Decimal `json:"length_in"`
	WidthIn  decimal.Decimal `json:"width_in"`
	HeightIn decimal.Decimal `json:"height_in"`
}
