package journal

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

// Repository persists append-only journal entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.JournalEntry) (bool, error)
	ListByEntity(ctx context.Context, entityType enums.JournalEntityType, entityID uuid.UUID) ([]models.JournalEntry, error)
	Exists(ctx context.Context, entityType enums.JournalEntityType, entityID uuid.UUID, externalEventID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a journal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Append inserts entry unless one already exists for the same entity and
// gateway event. It reports whether a row was written.
func (r *repository) Append(ctx context.Context, entry *models.JournalEntry) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}, {Name: "external_event_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListByEntity(ctx context.Context, entityType enums.JournalEntityType, entityID uuid.UUID) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("occurred_at ASC, created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Exists(ctx context.Context, entityType enums.JournalEntityType, entityID uuid.UUID, externalEventID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JournalEntry{}).
		Where("entity_type = ? AND entity_id = ? AND external_event_id = ?", entityType, entityID, externalEventID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
