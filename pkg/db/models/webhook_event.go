package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

// WebhookEvent is the top-level processing log, one row per gateway event id.
type WebhookEvent struct {
	EventID     string                   `gorm:"column:event_id;primaryKey"`
	Type        string                   `gorm:"column:type;not null"`
	Status      enums.WebhookEventStatus `gorm:"column:status;not null;index:idx_webhook_events_status"`
	Message     *string                  `gorm:"column:message"`
	Payload     datatypes.JSON           `gorm:"column:payload;type:jsonb"`
	OrderID     *uuid.UUID               `gorm:"column:order_id;type:uuid"`
	InvoiceID   *uuid.UUID               `gorm:"column:invoice_id;type:uuid"`
	Livemode    bool                     `gorm:"column:livemode;not null"`
	Attempts    int                      `gorm:"column:attempts;not null"`
	OccurredAt  time.Time                `gorm:"column:occurred_at;not null"`
	ProcessedAt *time.Time               `gorm:"column:processed_at"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
