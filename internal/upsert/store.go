// Package upsert writes reconciled documents. Every write runs in one
// transaction with its journal entry and any domain event it implies.
package upsert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/internal/customers"
	"github.com/angelmondragon/gatewaysync/internal/invoices"
	"github.com/angelmondragon/gatewaysync/internal/journal"
	"github.com/angelmondragon/gatewaysync/internal/orders"
	"github.com/angelmondragon/gatewaysync/internal/paymentlinks"
	"github.com/angelmondragon/gatewaysync/internal/quotes"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/outbox"
)

// maxStatusAttempts bounds compare-and-set retries when a concurrent write
// moves the status between read and update.
const maxStatusAttempts = 3

// ErrStatusContention is returned when every compare-and-set attempt lost.
var ErrStatusContention = errors.New("payment status changed concurrently")

// EventRef identifies the gateway event driving a write.
type EventRef struct {
	ID         string
	Type       string
	OccurredAt time.Time
}

// Note is the human part of a journal entry.
type Note struct {
	Label    string
	Message  string
	Amount   *decimal.Decimal
	Currency string
}

// Deps wires a Store.
type Deps struct {
	DB           *gorm.DB
	Orders       orders.Repository
	Invoices     invoices.Repository
	Customers    customers.Repository
	Quotes       quotes.Repository
	PaymentLinks paymentlinks.Repository
	Journal      journal.Service
	Outbox       *outbox.Service
	Logger       *logger.Logger
	Now          func() time.Time
}

// Store is the idempotent create-or-patch layer.
type Store struct {
	db        *gorm.DB
	orders    orders.Repository
	invoices  invoices.Repository
	customers customers.Repository
	quotes    quotes.Repository
	links     paymentlinks.Repository
	journal   journal.Service
	outbox    *outbox.Service
	logg      *logger.Logger
	now       func() time.Time
}

// NewStore validates deps. Quotes, payment links and the outbox are optional.
func NewStore(deps Deps) (*Store, error) {
	switch {
	case deps.DB == nil:
		return nil, fmt.Errorf("db required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Invoices == nil:
		return nil, fmt.Errorf("invoices repository required")
	case deps.Customers == nil:
		return nil, fmt.Errorf("customers repository required")
	case deps.Journal == nil:
		return nil, fmt.Errorf("journal service required")
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		db:        deps.DB,
		orders:    deps.Orders,
		invoices:  deps.Invoices,
		customers: deps.Customers,
		quotes:    deps.Quotes,
		links:     deps.PaymentLinks,
		journal:   deps.Journal,
		outbox:    deps.Outbox,
		logg:      deps.Logger,
		now:       now,
	}, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) occurredAt(ev EventRef) time.Time {
	if ev.OccurredAt.IsZero() {
		return s.now()
	}
	return ev.OccurredAt.UTC()
}

func (s *Store) record(ctx context.Context, tx *gorm.DB, entity enums.JournalEntityType, id uuid.UUID, ev EventRef, status string, note Note) (bool, error) {
	if ev.ID == "" {
		return false, nil
	}
	label := note.Label
	if label == "" {
		label = ev.Type
	}
	return s.journal.WithTx(tx).Record(ctx, journal.RecordInput{
		EntityType:      entity,
		EntityID:        id,
		ExternalEventID: ev.ID,
		EventType:       ev.Type,
		Status:          status,
		Label:           label,
		Message:         note.Message,
		Amount:          note.Amount,
		Currency:        note.Currency,
		OccurredAt:      s.occurredAt(ev),
	})
}

// jsonColumn pre-encodes a value for a jsonb column written through an
// update map, where column serializers do not run.
func jsonColumn(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mergeMetadata(current, incoming map[string]string) (map[string]string, bool) {
	if len(incoming) == 0 {
		return current, false
	}
	merged := make(map[string]string, len(current)+len(incoming))
	for k, v := range current {
		merged[k] = v
	}
	changed := false
	for k, v := range incoming {
		if _, ok := merged[k]; ok || v == "" {
			continue
		}
		merged[k] = v
		changed = true
	}
	return merged, changed
}
