package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/internal/gateway"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
)

// Service mirrors gateway products and prices into the catalog tables.
type Service struct {
	repo Repository
}

// NewService wires the catalog mirror.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &Service{repo: repo}, nil
}

// SyncProduct creates or patches the mirror row for product. Deleted products
// are deactivated, never removed, so historical cart references stay valid.
func (s *Service) SyncProduct(ctx context.Context, product *gateway.Product, deleted bool) (*models.CatalogProduct, error) {
	if product == nil || product.ID == "" {
		return nil, fmt.Errorf("product id is required")
	}

	existing, err := s.repo.FindProductByGatewayID(ctx, product.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find product %s: %w", product.ID, err)
	}

	active := product.Active && !deleted && !product.Deleted
	if existing == nil {
		row := productRow(product)
		row.Active = active
		if err := s.repo.CreateProduct(ctx, row); err != nil {
			return nil, fmt.Errorf("create product %s: %w", product.ID, err)
		}
		return row, nil
	}

	updates := map[string]any{"active": active}
	if deleted {
		if err := s.repo.UpdateProduct(ctx, existing.ID, updates); err != nil {
			return nil, fmt.Errorf("deactivate product %s: %w", product.ID, err)
		}
		existing.Active = false
		return existing, nil
	}

	row := productRow(product)
	if row.Title != "" {
		updates["title"] = row.Title
	}
	setIfPresent(updates, "sku", row.SKU)
	setIfPresent(updates, "slug", row.Slug)
	setIfPresent(updates, "default_price_id", row.DefaultPriceID)
	setDecimalIfPresent(updates, "price", row.Price)
	setDecimalIfPresent(updates, "weight_oz", row.WeightOz)
	setDecimalIfPresent(updates, "length_in", row.LengthIn)
	setDecimalIfPresent(updates, "width_in", row.WidthIn)
	setDecimalIfPresent(updates, "height_in", row.HeightIn)
	if err := s.repo.UpdateProduct(ctx, existing.ID, updates); err != nil {
		return nil, fmt.Errorf("update product %s: %w", product.ID, err)
	}
	return s.repo.FindProductByGatewayID(ctx, product.ID)
}

// SyncPrice mirrors a price and, when it is the product's default, copies
// the unit amount onto the product row.
func (s *Service) SyncPrice(ctx context.Context, price *gateway.Price, deleted bool) (*models.CatalogPrice, error) {
	if price == nil || price.ID == "" {
		return nil, fmt.Errorf("price id is required")
	}

	amount := decimal.Zero
	if price.UnitAmount != nil {
		amount = derive.FromMinor(*price.UnitAmount, price.Currency)
	} else if parsed, ok := derive.ParseAmount(price.UnitAmountDecimal); ok {
		amount = derive.RoundMoney(parsed.Shift(-derive.CurrencyExponent(price.Currency)))
	}

	var productID *string
	if price.Product.ID != "" {
		id := price.Product.ID
		productID = &id
	}
	var interval *string
	if price.Recurring != nil && price.Recurring.Interval != "" {
		v := price.Recurring.Interval
		interval = &v
	}
	active := price.Active && !deleted && !price.Deleted

	existing, err := s.repo.FindPriceByGatewayID(ctx, price.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find price %s: %w", price.ID, err)
	}

	var row *models.CatalogPrice
	if existing == nil {
		row = &models.CatalogPrice{
			GatewayPriceID:   price.ID,
			GatewayProductID: productID,
			UnitAmount:       amount,
			Currency:         derive.NormalizeCurrency(price.Currency),
			Active:           active,
			RecurringPeriod:  interval,
		}
		if err := s.repo.CreatePrice(ctx, row); err != nil {
			return nil, fmt.Errorf("create price %s: %w", price.ID, err)
		}
	} else {
		updates := map[string]any{"active": active}
		if !deleted {
			updates["unit_amount"] = amount
			updates["currency"] = derive.NormalizeCurrency(price.Currency)
			setIfPresent(updates, "gateway_product_id", productID)
			setIfPresent(updates, "recurring_interval", interval)
		}
		if err := s.repo.UpdatePrice(ctx, existing.ID, updates); err != nil {
			return nil, fmt.Errorf("update price %s: %w", price.ID, err)
		}
		row = existing
		row.Active = active
	}

	if productID != nil && active {
		if err := s.applyDefaultPrice(ctx, *productID, price.ID, row.UnitAmount, price.Currency); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (s *Service) applyDefaultPrice(ctx context.Context, gatewayProductID, priceID string, amount decimal.Decimal, currency string) error {
	product, err := s.repo.FindProductByGatewayID(ctx, gatewayProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find product %s: %w", gatewayProductID, err)
	}
	if product.DefaultPriceID != nil && *product.DefaultPriceID != priceID {
		return nil
	}
	return s.repo.UpdateProduct(ctx, product.ID, map[string]any{
		"default_price_id": priceID,
		"price":            amount,
		"currency":         derive.NormalizeCurrency(currency),
	})
}

func productRow(product *gateway.Product) *models.CatalogProduct {
	meta := product.Metadata
	row := &models.CatalogProduct{
		Title:    product.Name,
		Metadata: meta,
		WeightOz: derive.LookupDecimalPtr(meta, derive.FieldWeight),
		LengthIn: derive.LookupDecimalPtr(meta, derive.FieldLength),
		WidthIn:  derive.LookupDecimalPtr(meta, derive.FieldWidth),
		HeightIn: derive.LookupDecimalPtr(meta, derive.FieldHeight),
		Price:    derive.LookupDecimalPtr(meta, derive.FieldListPrice),
	}
	id := product.ID
	row.GatewayProductID = &id
	if sku, ok := derive.Lookup(meta, derive.FieldSKU); ok {
		row.SKU = &sku
	}
	slug, ok := derive.Lookup(meta, derive.FieldSlug)
	if !ok {
		slug = derive.Slugify(product.Name)
	}
	if slug != "" {
		row.Slug = &slug
	}
	if product.DefaultPrice.ID != "" {
		priceID := product.DefaultPrice.ID
		row.DefaultPriceID = &priceID
	}
	return row
}

func setIfPresent(updates map[string]any, column string, value *string) {
	if value != nil && *value != "" {
		updates[column] = *value
	}
}

func setDecimalIfPresent(updates map[string]any, column string, value *decimal.Decimal) {
	if value != nil {
		updates[column] = *value
	}
}
