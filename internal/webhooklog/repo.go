package webhooklog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/pagination"
)

// Outcome is the final state written after an event was handled.
type Outcome struct {
	Status    enums.WebhookEventStatus
	Message   string
	OrderID   *uuid.UUID
	InvoiceID *uuid.UUID
}

// Repository is the top-level webhook processing log, keyed by gateway event id.
type Repository interface {
	Begin(ctx context.Context, event *models.WebhookEvent) (int, error)
	Finish(ctx context.Context, eventID string, outcome Outcome) error
	Get(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	ListReplayable(ctx context.Context, maxAttempts, limit int) ([]models.WebhookEvent, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error)
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a webhook log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Begin creates or replaces the row for event.EventID with status received
// and bumps the attempt counter. It returns the attempt number.
func (r *repository) Begin(ctx context.Context, event *models.WebhookEvent) (int, error) {
	event.Status = enums.WebhookEventStatusReceived
	event.Attempts = 1
	event.ProcessedAt = nil

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"type":         event.Type,
				"status":       event.Status,
				"payload":      event.Payload,
				"livemode":     event.Livemode,
				"occurred_at":  event.OccurredAt,
				"message":      nil,
				"processed_at": nil,
				"attempts":     gorm.Expr("attempts + 1"),
				"updated_at":   time.Now().UTC(),
			}),
		}).
		Create(event).Error
	if err != nil {
		return 0, err
	}

	stored, err := r.Get(ctx, event.EventID)
	if err != nil {
		return 0, err
	}
	return stored.Attempts, nil
}

func (r *repository) Finish(ctx context.Context, eventID string, outcome Outcome) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":       outcome.Status,
		"processed_at": now,
		"message":      nil,
	}
	if outcome.Message != "" {
		updates["message"] = outcome.Message
	}
	if outcome.OrderID != nil {
		updates["order_id"] = *outcome.OrderID
	}
	if outcome.InvoiceID != nil {
		updates["invoice_id"] = *outcome.InvoiceID
	}
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
}

func (r *repository) Get(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// ListReplayable returns errored events that have not exhausted their
// attempts, oldest first.
func (r *repository) ListReplayable(ctx context.Context, maxAttempts, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.WebhookEventStatusError).
		Order("occurred_at ASC")
	if maxAttempts > 0 {
		query = query.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteSettledBefore prunes processed and skipped rows finished before
// cutoff. Errored rows stay until an operator replays or inspects them.
func (r *repository) DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ?", []enums.WebhookEventStatus{enums.WebhookEventStatusProcessed, enums.WebhookEventStatusSkipped}).
		Where("processed_at < ?", cutoff).
		Delete(&models.WebhookEvent{})
	return res.RowsAffected, res.Error
}
