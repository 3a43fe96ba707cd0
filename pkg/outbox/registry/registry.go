// Package registry maps outbox event types to their topic and payload shape.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/gatewaysync/pkg/config"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
	"github.com/angelmondragon/gatewaysync/pkg/outbox"
	"github.com/angelmondragon/gatewaysync/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	decode func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// Rejection marks a row that no number of retries will publish.
type Rejection struct {
	Reason enums.OutboxDLQErrorReason
	Err    error
}

func Reject(reason enums.OutboxDLQErrorReason, err error) *Rejection {
	return &Rejection{Reason: reason, Err: err}
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %v", r.Reason, r.Err)
}

func (r *Rejection) Unwrap() error { return r.Err }

// ReasonOf reports the dead-letter reason carried by err.
func ReasonOf(err error) (enums.OutboxDLQErrorReason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes every domain event to cfg.DomainTopic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	reg := &EventRegistry{entries: map[enums.OutboxEventType]EventDescriptor{}}
	for _, desc := range []EventDescriptor{
		describe[payloads.OrderPaymentStatusChangedEvent](enums.EventOrderPaymentStatusChanged, enums.AggregateOrder, cfg.DomainTopic),
		describe[payloads.InvoiceCreatedEvent](enums.EventInvoiceCreated, enums.AggregateInvoice, cfg.DomainTopic),
	} {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// Resolve decodes row. Every failure is a *Rejection: unknown event types are
// unroutable, malformed rows are non-retryable.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[row.EventType]
	if !ok {
		return nil, Reject(enums.OutboxDLQReasonUnroutable, fmt.Errorf("no route for event type %q", row.EventType))
	}
	malformed := func(format string, args ...any) error {
		return Reject(enums.OutboxDLQReasonNonRetryable, fmt.Errorf(format, args...))
	}
	if desc.AggregateType != row.AggregateType {
		return nil, malformed("%s belongs to %s aggregates, row has %s", row.EventType, desc.AggregateType, row.AggregateType)
	}
	if row.AggregateID == uuid.Nil {
		return nil, malformed("aggregate id is empty")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return nil, malformed("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, malformed("envelope of %s carries no data", row.EventType)
	}
	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, malformed("decode %s data: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
