// Package analytics consumes published domain events and lands them in
// BigQuery.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/gatewaysync/internal/analytics/types"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
	"github.com/angelmondragon/gatewaysync/pkg/outbox"
	"github.com/angelmondragon/gatewaysync/pkg/outbox/payloads"
	"github.com/angelmondragon/gatewaysync/pkg/redis"
)

const (
	consumerScope    = "analytics-consumer"
	defaultDedupeTTL = 72 * time.Hour
)

// Message is the part of a Pub/Sub delivery the consumer reads.
type Message struct {
	ID         string
	Attributes map[string]string
	Data       []byte
}

type statusWriter interface {
	WriteStatusChange(ctx context.Context, row types.OrderStatusChangeRow) error
}

// Consumer writes order status changes to BigQuery at most once per domain
// event id.
type Consumer struct {
	writer statusWriter
	dedupe redis.IdempotencyStore
	ttl    time.Duration
	logg   *logger.Logger
}

func NewConsumer(writer statusWriter, dedupe redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) (*Consumer, error) {
	if writer == nil {
		return nil, errors.New("status writer required")
	}
	if dedupe == nil {
		return nil, errors.New("dedupe store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &Consumer{writer: writer, dedupe: dedupe, ttl: ttl, logg: logg}, nil
}

// Process returns an error only when redelivery could succeed. Unhandled
// event types and malformed payloads are logged and acknowledged.
func (c *Consumer) Process(ctx context.Context, msg Message) error {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	ctx = c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})
	if eventType != enums.EventOrderPaymentStatusChanged {
		c.logg.Debug(ctx, "event not handled by analytics consumer")
		return nil
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(ctx, "dropping undecodable envelope", err)
		return nil
	}
	eventID := strings.TrimSpace(envelope.EventID)
	if eventID == "" {
		eventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if eventID == "" {
		c.logg.Error(ctx, "dropping envelope", errors.New("event id missing"))
		return nil
	}
	ctx = c.logg.WithField(ctx, "event_id", eventID)

	row, err := buildRow(eventID, eventType, envelope)
	if err != nil {
		c.logg.Error(ctx, "dropping malformed status change", err)
		return nil
	}

	key := c.dedupe.IdempotencyKey(consumerScope, eventID)
	fresh, err := c.dedupe.SetNX(ctx, key, "1", c.ttl)
	if err != nil {
		return fmt.Errorf("dedupe check: %w", err)
	}
	if !fresh {
		c.logg.Info(ctx, "event already consumed")
		return nil
	}

	if err := c.writer.WriteStatusChange(ctx, row); err != nil {
		if delErr := c.dedupe.Del(ctx, key); delErr != nil {
			c.logg.Warn(ctx, fmt.Sprintf("failed to clear dedupe marker: %v", delErr))
		}
		return fmt.Errorf("write status change: %w", err)
	}
	c.logg.Info(ctx, "status change ingested")
	return nil
}

func buildRow(eventID string, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (types.OrderStatusChangeRow, error) {
	var event payloads.OrderPaymentStatusChangedEvent
	if len(envelope.Data) == 0 {
		return types.OrderStatusChangeRow{}, fmt.Errorf("%s payload is empty", eventType)
	}
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		return types.OrderStatusChangeRow{}, fmt.Errorf("decode payload: %w", err)
	}
	if !event.Status.IsValid() {
		return types.OrderStatusChangeRow{}, fmt.Errorf("invalid status %q", event.Status)
	}

	row := types.OrderStatusChangeRow{
		EventID:     eventID,
		OrderID:     event.OrderID.String(),
		OrderNumber: event.OrderNumber,
		Status:      string(event.Status),
		OccurredAt:  envelope.OccurredAt.UTC(),
		Payload:     cbigquery.NullJSON{JSONVal: string(envelope.Data), Valid: true},
	}
	row.SetTotal(event.Total, event.Currency)
	if event.PreviousStatus != "" {
		prev := string(event.PreviousStatus)
		row.PreviousStatus = &prev
	}
	if event.InvoiceID != nil {
		id := event.InvoiceID.String()
		row.InvoiceID = &id
	}
	if src := envelope.Source; src != nil && src.GatewayEventID != "" {
		id := src.GatewayEventID
		row.GatewayEventID = &id
	}
	return row, nil
}
