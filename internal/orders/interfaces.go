package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

// TransactionColumn names an order column holding a gateway transaction id.
type TransactionColumn string

const (
	ColumnCheckoutSessionID TransactionColumn = "checkout_session_id"
	ColumnPaymentIntentID   TransactionColumn = "payment_intent_id"
	ColumnChargeID          TransactionColumn = "charge_id"
)

// TransactionIDs are the gateway ids an order accumulates over its lifetime.
type TransactionIDs struct {
	CheckoutSessionID string
	PaymentIntentID   string
	ChargeID          string
}

// IsEmpty reports whether no id is set.
func (t TransactionIDs) IsEmpty() bool {
	return t.CheckoutSessionID == "" && t.PaymentIntentID == "" && t.ChargeID == ""
}

// Repository defines persistence operations for orders. Finders return
// gorm.ErrRecordNotFound on a miss.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, number string) (*models.Order, error)
	FindByTransactionID(ctx context.Context, column TransactionColumn, value string) (*models.Order, error)
	FindByAnyTransactionID(ctx context.Context, ids TransactionIDs) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateIfStatus(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) (bool, error)
}
