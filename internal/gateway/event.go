package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/gatewaysync/internal/derive"
	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

var (
	ErrUnknownEventType = errors.New("unknown gateway event type")
	ErrMissingObject    = errors.New("event carries no data object")
)

// Event is a verified gateway event reduced to what the router needs.
type Event struct {
	ID                 string
	Type               enums.GatewayEventType
	OccurredAt         time.Time
	Livemode           bool
	Object             json.RawMessage
	PreviousAttributes map[string]any
	// Raw is the delivered body, kept for the webhook log and replay.
	Raw json.RawMessage
}

// FromStripe converts a verified stripe event.
func FromStripe(evt stripe.Event, raw []byte) Event {
	out := Event{
		ID:         evt.ID,
		Type:       enums.GatewayEventType(evt.Type),
		OccurredAt: derive.FromUnix(evt.Created),
		Livemode:   evt.Livemode,
		Raw:        append(json.RawMessage(nil), raw...),
	}
	if evt.Data != nil {
		out.Object = evt.Data.Raw
		out.PreviousAttributes = evt.Data.PreviousAttributes
	}
	return out
}

// Parse decodes a stored event body without verifying it. Only use it for
// payloads that were verified when first received.
func Parse(raw []byte) (Event, error) {
	var evt stripe.Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return Event{}, fmt.Errorf("decode stored event: %w", err)
	}
	if evt.ID == "" {
		return Event{}, errors.New("stored event has no id")
	}
	return FromStripe(evt, raw), nil
}

// Payload decodes the event's data object into its variant.
func (e Event) Payload() (Payload, error) {
	return Decode(e.Type, e.Object)
}

// Decode maps an event type to its payload variant and unmarshals raw into it.
func Decode(eventType enums.GatewayEventType, raw json.RawMessage) (Payload, error) {
	category, ok := eventType.Category()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	if len(raw) == 0 {
		return nil, ErrMissingObject
	}

	var payload Payload
	switch category {
	case enums.CategoryCheckoutSession:
		payload = &CheckoutSession{}
	case enums.CategoryPaymentIntent:
		payload = &PaymentIntent{}
	case enums.CategoryCharge:
		payload = &Charge{}
	case enums.CategoryDispute:
		payload = &Dispute{}
	case enums.CategoryInvoice:
		payload = &Invoice{}
	case enums.CategoryCustomer:
		payload = &Customer{}
	case enums.CategoryQuote:
		payload = &Quote{}
	case enums.CategoryPaymentLink:
		payload = &PaymentLink{}
	case enums.CategoryProduct:
		payload = &Product{}
	case enums.CategoryPrice:
		payload = &Price{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", category, err)
	}
	return payload, nil
}
