package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatewaysync/pkg/db/dbtest"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, &models.OutboxEvent{})
	svc := NewService(NewRepository(db), nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return svc, db
}

func invoiceEvent(id uuid.UUID) DomainEvent {
	return DomainEvent{
		EventType:     enums.EventInvoiceCreated,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   id,
		Source:        &SourceRef{GatewayEventID: "evt_1", GatewayEventType: "invoice.paid"},
		Data:          map[string]string{"invoice_number": "INV-1"},
	}
}

func TestEmitWritesEnvelope(t *testing.T) {
	svc, db := newTestService(t)
	id := uuid.New()

	require.NoError(t, svc.Emit(context.Background(), db, invoiceEvent(id)))

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].AggregateID)

	var env PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	assert.Equal(t, currentEnvelopeVersion, env.Version)
	assert.NotEmpty(t, env.EventID)
	assert.True(t, env.OccurredAt.Equal(svc.now()))
	assert.Equal(t, "evt_1", env.Source.GatewayEventID)
	assert.JSONEq(t, `{"invoice_number":"INV-1"}`, string(env.Data))
}

func TestEmitRejectsIncompleteEvents(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.Error(t, svc.Emit(ctx, nil, invoiceEvent(uuid.New())))
	require.Error(t, svc.Emit(ctx, db, invoiceEvent(uuid.Nil)))

	noData := invoiceEvent(uuid.New())
	noData.Data = nil
	require.Error(t, svc.Emit(ctx, db, noData))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitIfNotExistsQueuesOnce(t *testing.T) {
	svc, db := newTestService(t)
	id := uuid.New()
	ctx := context.Background()

	require.NoError(t, svc.EmitIfNotExists(ctx, db, invoiceEvent(id)))
	require.NoError(t, svc.EmitIfNotExists(ctx, db, invoiceEvent(id)))
	require.NoError(t, svc.EmitIfNotExists(ctx, db, invoiceEvent(uuid.New())))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", id).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	svc, db := newTestService(t)
	id := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, invoiceEvent(id)))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}
