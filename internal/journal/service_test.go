package journal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatewaysync/pkg/db/dbtest"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

func TestServiceRecordIsIdempotentPerEvent(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(NewRepository(dbtest.Open(t, &models.JournalEntry{})))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	amount := decimal.RequireFromString("59.00")
	input := RecordInput{
		EntityType:      enums.JournalEntityOrder,
		EntityID:        uuid.New(),
		ExternalEventID: "evt_1",
		EventType:       "charge.refunded",
		Status:          "refunded",
		Label:           "Charge refunded",
		Amount:          &amount,
		Currency:        "USD",
		OccurredAt:      time.Unix(1729123200, 0).UTC(),
	}

	written, err := svc.Record(ctx, input)
	if err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if !written {
		t.Fatal("expected first record to be written")
	}

	written, err = svc.Record(ctx, input)
	if err != nil {
		t.Fatalf("second Record: %v", err)
	}
	if written {
		t.Fatal("expected duplicate record to be skipped")
	}

	other := input
	other.ExternalEventID = "evt_2"
	if _, err := svc.Record(ctx, other); err != nil {
		t.Fatalf("third Record: %v", err)
	}

	history, err := svc.History(ctx, enums.JournalEntityOrder, input.EntityID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Amount == nil || !history[0].Amount.Equal(amount) {
		t.Fatalf("unexpected amount %v", history[0].Amount)
	}
}

func TestServiceRecordValidation(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t, &models.JournalEntry{})))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	cases := map[string]RecordInput{
		"entity type": {EntityID: uuid.New(), ExternalEventID: "evt"},
		"entity id":   {EntityType: enums.JournalEntityInvoice, ExternalEventID: "evt"},
		"event id":    {EntityType: enums.JournalEntityInvoice, EntityID: uuid.New()},
	}
	for name, input := range cases {
		if _, err := svc.Record(context.Background(), input); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}
