package paymentlinks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/db/models"
)

// Repository defines persistence operations for mirrored payment links.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, link *models.PaymentLink) error
	FindByGatewayID(ctx context.Context, gatewayID string) (*models.PaymentLink, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment links repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, link *models.PaymentLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) FindByGatewayID(ctx context.Context, gatewayID string) (*models.PaymentLink, error) {
	if gatewayID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var link models.PaymentLink
	if err := r.db.WithContext(ctx).Where("gateway_payment_link_id = ?", gatewayID).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentLink{}).
		Where("id = ?", id).
		Updates(updates).Error
}
