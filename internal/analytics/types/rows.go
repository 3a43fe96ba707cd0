// Package types holds the analytics row shapes written to BigQuery.
package types

import (
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatewaysync/internal/derive"
)

// WebhookEventRow mirrors the webhook_events BigQuery schema: one row per
// processed gateway event.
type WebhookEventRow struct {
	EventID     string    `bigquery:"event_id"`
	EventType   string    `bigquery:"event_type"`
	Status      string    `bigquery:"status"`
	Message     *string   `bigquery:"message"`
	Attempt     int64     `bigquery:"attempt"`
	Livemode    bool      `bigquery:"livemode"`
	OrderID     *string   `bigquery:"order_id"`
	InvoiceID   *string   `bigquery:"invoice_id"`
	TotalCents  *int64    `bigquery:"total_cents"`
	Currency    *string   `bigquery:"currency"`
	OccurredAt  time.Time `bigquery:"occurred_at"`
	ProcessedAt time.Time `bigquery:"processed_at"`
}

// SetTotal stores total in the currency's minor unit.
func (r *WebhookEventRow) SetTotal(total decimal.Decimal, currency string) {
	r.TotalCents, r.Currency = minorUnits(total, currency)
}

// OrderStatusChangeRow mirrors the order_status_changes schema: one row per
// consumed order.payment_status_changed domain event.
type OrderStatusChangeRow struct {
	EventID        string            `bigquery:"event_id"`
	GatewayEventID *string           `bigquery:"gateway_event_id"`
	OrderID        string            `bigquery:"order_id"`
	OrderNumber    string            `bigquery:"order_number"`
	PreviousStatus *string           `bigquery:"previous_status"`
	Status         string            `bigquery:"status"`
	InvoiceID      *string           `bigquery:"invoice_id"`
	TotalCents     *int64            `bigquery:"total_cents"`
	Currency       *string           `bigquery:"currency"`
	OccurredAt     time.Time         `bigquery:"occurred_at"`
	Payload        bigquery.NullJSON `bigquery:"payload"`
}

// Save keys the insert id on event and attempt so a retried insert of the
// same attempt is deduplicated while replays still land as new rows.
func (r *WebhookEventRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"event_id":     r.EventID,
		"event_type":   r.EventType,
		"status":       r.Status,
		"message":      optional(r.Message),
		"attempt":      r.Attempt,
		"livemode":     r.Livemode,
		"order_id":     optional(r.OrderID),
		"invoice_id":   optional(r.InvoiceID),
		"total_cents":  optional(r.TotalCents),
		"currency":     optional(r.Currency),
		"occurred_at":  r.OccurredAt,
		"processed_at": r.ProcessedAt,
	}, r.EventID + ":" + strconv.FormatInt(r.Attempt, 10), nil
}

func (r *OrderStatusChangeRow) SetTotal(total decimal.Decimal, currency string) {
	r.TotalCents, r.Currency = minorUnits(total, currency)
}

// Save uses the domain event id as insert id; redelivered messages collapse
// into one row.
func (r *OrderStatusChangeRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"event_id":         r.EventID,
		"gateway_event_id": optional(r.GatewayEventID),
		"order_id":         r.OrderID,
		"order_number":     r.OrderNumber,
		"previous_status":  optional(r.PreviousStatus),
		"status":           r.Status,
		"invoice_id":       optional(r.InvoiceID),
		"total_cents":      optional(r.TotalCents),
		"currency":         optional(r.Currency),
		"occurred_at":      r.OccurredAt,
		"payload":          nil,
	}
	if r.Payload.Valid {
		row["payload"] = r.Payload.JSONVal
	}
	return row, r.EventID, nil
}

func optional[T any](v *T) bigquery.Value {
	if v == nil {
		return nil
	}
	return *v
}

func minorUnits(total decimal.Decimal, currency string) (*int64, *string) {
	currency = derive.NormalizeCurrency(currency)
	minor := total.Shift(derive.CurrencyExponent(currency)).Round(0).IntPart()
	if currency == "" {
		return &minor, nil
	}
	return &minor, &currency
}
