package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

// JournalEntry is an immutable audit record attached to an order or invoice.
// One entry exists per (entity, gateway event).
type JournalEntry struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	EntityType      enums.JournalEntityType `gorm:"column:entity_type;not null;uniqueIndex:ux_journal_entries_entity_event,priority:1"`
	EntityID        uuid.UUID               `gorm:"column:entity_id;type:uuid;not null;uniqueIndex:ux_journal_entries_entity_event,priority:2"`
	ExternalEventID string                  `gorm:"column:external_event_id;not null;uniqueIndex:ux_journal_entries_entity_event,priority:3"`
	EventType       string                  `gorm:"column:event_type;not null"`
	Status          string                  `gorm:"column:status;not null"`
	Label           string                  `gorm:"column:label;not null"`
	Message         *string                 `gorm:"column:message"`
	Amount          *decimal.Decimal        `gorm:"column:amount;type:numeric(12,2)"`
	Currency        *string                 `gorm:"column:currency"`
	OccurredAt      time.Time               `gorm:"column:occurred_at;not null"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (j *JournalEntry) BeforeCreate(*gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
