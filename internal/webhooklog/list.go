package webhooklog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
	"github.com/angelmondragon/gatewaysync/pkg/pagination"
)

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status enums.WebhookEventStatus
	Type   string
}

// EventSummary is a log row without its payload.
type EventSummary struct {
	EventID     string                   `json:"event_id"`
	Type        string                   `json:"type"`
	Status      enums.WebhookEventStatus `json:"status"`
	Message     *string                  `json:"message,omitempty"`
	Attempts    int                      `json:"attempts"`
	Livemode    bool                     `json:"livemode"`
	OrderID     *uuid.UUID               `json:"order_id,omitempty"`
	InvoiceID   *uuid.UUID               `json:"invoice_id,omitempty"`
	OccurredAt  time.Time                `json:"occurred_at"`
	ProcessedAt *time.Time               `json:"processed_at,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// Page is one cursor page of the log, newest first.
type Page struct {
	Events     []EventSummary `json:"events"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Model(&models.WebhookEvent{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND event_id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.Key)
	}

	var rows []models.WebhookEvent
	err = query.
		Omit("payload").
		Order("created_at DESC").
		Order("event_id DESC").
		Limit(pagination.FetchSize(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	rows, next := pagination.Split(rows, limit, func(row models.WebhookEvent) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, Key: row.EventID}
	})
	page := &Page{Events: make([]EventSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		page.Events = append(page.Events, summarize(row))
	}
	return page, nil
}

func summarize(row models.WebhookEvent) EventSummary {
	return EventSummary{
		EventID:     row.EventID,
		Type:        row.Type,
		Status:      row.Status,
		Message:     row.Message,
		Attempts:    row.Attempts,
		Livemode:    row.Livemode,
		OrderID:     row.OrderID,
		InvoiceID:   row.InvoiceID,
		OccurredAt:  row.OccurredAt,
		ProcessedAt: row.ProcessedAt,
		CreatedAt:   row.CreatedAt,
	}
}
