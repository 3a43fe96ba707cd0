package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

// Service records audit entries against orders and invoices.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordInput) (bool, error)
	History(ctx context.Context, entityType enums.JournalEntityType, entityID uuid.UUID) ([]models.JournalEntry, error)
}

type service struct {
	repo Repository
}

// RecordInput captures the immutable data a journal entry requires.
type RecordInput struct {
	EntityType      enums.JournalEntityType
	EntityID        uuid.UUID
	ExternalEventID string
	EventType       string
	Status          string
	Label           string
	Message         string
	Amount          *decimal.Decimal
	Currency        string
	OccurredAt      time.Time
}

// NewService wires a journal service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("journal repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

// Record appends the entry. A repeat of the same gateway event for the same
// entity is a no-op and reports false.
func (s *service) Record(ctx context.Context, input RecordInput) (bool, error) {
	if !input.EntityType.IsValid() {
		return false, fmt.Errorf("invalid journal entity type %q", input.EntityType)
	}
	if input.EntityID == uuid.Nil {
		return false, fmt.Errorf("entity id is required")
	}
	if strings.TrimSpace(input.ExternalEventID) == "" {
		return false, fmt.Errorf("external event id is required")
	}
	if input.OccurredAt.IsZero() {
		input.OccurredAt = time.Now().UTC()
	}

	entry := &models.JournalEntry{
		EntityType:      input.EntityType,
		EntityID:        input.EntityID,
		ExternalEventID: input.ExternalEventID,
		EventType:       input.EventType,
		Status:          input.Status,
		Label:           input.Label,
		Amount:          input.Amount,
		OccurredAt:      input.OccurredAt,
	}
	if msg := strings.TrimSpace(input.Message); msg != "" {
		entry.Message = &msg
	}
	if input.Currency != "" {
		currency := input.Currency
		entry.Currency = &currency
	}
	return s.repo.Append(ctx, entry)
}

func (s *service) History(ctx context.Context, entityType enums.JournalEntityType, entityID uuid.UUID) ([]models.JournalEntry, error) {
	if entityID == uuid.Nil {
		return nil, fmt.Errorf("entity id is required")
	}
	return s.repo.ListByEntity(ctx, entityType, entityID)
}
