package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatewaysync/pkg/enums"
)

// OrderPaymentStatusChangedEvent is emitted whenever an order's payment status moves.
type OrderPaymentStatusChangedEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	OrderNumber    string              `json:"order_number"`
	PreviousStatus enums.PaymentStatus `json:"previous_status,omitempty"`
	Status         enums.PaymentStatus `json:"status"`
	Total          decimal.Decimal     `json:"total"`
	Currency       string              `json:"currency"`
	InvoiceID      *uuid.UUID          `json:"invoice_id,omitempty"`
}

// InvoiceCreatedEvent is emitted once when an invoice is first recorded.
type InvoiceCreatedEvent struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
}
