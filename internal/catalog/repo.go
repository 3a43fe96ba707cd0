package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/db/models"
)

// Repository defines persistence operations for the product and price mirror.
// Finders return gorm.ErrRecordNotFound on a miss.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.CatalogProduct) error
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindProductByGatewayID(ctx context.Context, gatewayProductID string) (*models.CatalogProduct, error)
	FindProductBySKU(ctx context.Context, sku string) (*models.CatalogProduct, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.CatalogProduct, error)
	ListActiveProducts(ctx context.Context, limit int) ([]models.CatalogProduct, error)
	CreatePrice(ctx context.Context, price *models.CatalogPrice) error
	UpdatePrice(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindPriceByGatewayID(ctx context.Context, gatewayPriceID string) (*models.CatalogPrice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.CatalogProduct) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.CatalogProduct{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindProductByGatewayID(ctx context.Context, gatewayProductID string) (*models.CatalogProduct, error) {
	return r.findProduct(ctx, "gateway_product_id = ?", gatewayProductID)
}

// FindProductBySKU matches case-insensitively and prefers active products.
func (r *repository) FindProductBySKU(ctx context.Context, sku string) (*models.CatalogProduct, error) {
	return r.findProduct(ctx, "UPPER(sku) = ?", strings.ToUpper(strings.TrimSpace(sku)))
}

func (r *repository) FindProductBySlug(ctx context.Context, slug string) (*models.CatalogProduct, error) {
	return r.findProduct(ctx, "slug = ?", strings.TrimSpace(slug))
}

func (r *repository) findProduct(ctx context.Context, query string, value string) (*models.CatalogProduct, error) {
	if value == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var product models.CatalogProduct
	err := r.db.WithContext(ctx).
		Where(query, value).
		Order("active DESC").
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListActiveProducts(ctx context.Context, limit int) ([]models.CatalogProduct, error) {
	var products []models.CatalogProduct
	query := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("title ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) CreatePrice(ctx context.Context, price *models.CatalogPrice) error {
	return r.db.WithContext(ctx).Create(price).Error
}

func (r *repository) UpdatePrice(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.CatalogPrice{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindPriceByGatewayID(ctx context.Context, gatewayPriceID string) (*models.CatalogPrice, error) {
	if gatewayPriceID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var price models.CatalogPrice
	if err := r.db.WithContext(ctx).Where("gateway_price_id = ?", gatewayPriceID).First(&price).Error; err != nil {
		return nil, err
	}
	return &price, nil
}
