package outbox

import (
	"encoding/json"
	"time"
)

// SourceRef identifies the gateway event that produced a domain event.
type SourceRef struct {
	GatewayEventID   string `json:"gatewayEventId,omitempty"`
	GatewayEventType string `json:"gatewayEventType,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Source     *SourceRef      `json:"source,omitempty"`
	Data       json.RawMessage `json:"data"`
}
