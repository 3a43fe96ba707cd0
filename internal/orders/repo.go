package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByOrderNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("order_number = ?", number).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTransactionID(ctx context.Context, column TransactionColumn, value string) (*models.Order, error) {
	switch column {
	case ColumnCheckoutSessionID, ColumnPaymentIntentID, ColumnChargeID:
	default:
		return nil, fmt.Errorf("unsupported transaction column %q", column)
	}
	if value == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var order models.Order
	if err := r.db.WithContext(ctx).Where(string(column)+" = ?", value).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByAnyTransactionID matches an order holding any of the given ids. The
// oldest match wins when several orders qualify.
func (r *repository) FindByAnyTransactionID(ctx context.Context, ids TransactionIDs) (*models.Order, error) {
	if ids.IsEmpty() {
		return nil, gorm.ErrRecordNotFound
	}

	var clauses []string
	var args []any
	for _, c := range []struct {
		column TransactionColumn
		value  string
	}{
		{ColumnCheckoutSessionID, ids.CheckoutSessionID},
		{ColumnPaymentIntentID, ids.PaymentIntentID},
		{ColumnChargeID, ids.ChargeID},
	} {
		if c.value == "" {
			continue
		}
		clauses = append(clauses, string(c.column)+" = ?")
		args = append(args, c.value)
	}

	var order models.Order
	err := r.db.WithContext(ctx).
		Where(strings.Join(clauses, " OR "), args...).
		Order("created_at ASC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateIfStatus applies updates only while the stored payment status still
// equals expected. It reports whether the row was written.
func (r *repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) (bool, error) {
	if len(updates) == 0 {
		return true, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
