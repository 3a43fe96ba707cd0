// Package writer streams analytics rows into BigQuery.
package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/angelmondragon/gatewaysync/internal/analytics/types"
	pkgbigquery "github.com/angelmondragon/gatewaysync/pkg/bigquery"
)

type Config struct {
	EventsTable string
	// StatusChangesTable is optional; WriteStatusChange fails without it.
	StatusChangesTable string
	// BatchSize is how many webhook rows Report buffers before inserting.
	// The default of 1 inserts every row as it arrives.
	BatchSize int
	Retry     RetryPolicy
}

type inserter interface {
	InsertRows(ctx context.Context, table string, rows []bigquery.ValueSaver) error
}

// BigQueryWriter is safe for concurrent use.
type BigQueryWriter struct {
	client      inserter
	eventsTable string
	statusTable string
	batchSize   int
	retry       RetryPolicy

	mu      sync.Mutex
	pending []bigquery.ValueSaver
}

func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	events := strings.TrimSpace(cfg.EventsTable)
	if events == "" {
		return nil, errors.New("events table is required")
	}
	return &BigQueryWriter{
		client:      client,
		eventsTable: events,
		statusTable: strings.TrimSpace(cfg.StatusChangesTable),
		batchSize:   max(cfg.BatchSize, 1),
		retry:       cfg.Retry.withDefaults(),
	}, nil
}

// Report queues a webhook event row and inserts the batch once full. A batch
// that failed transiently stays queued for the next Report or Flush; a
// rejected batch is dropped.
func (w *BigQueryWriter) Report(ctx context.Context, row types.WebhookEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, &row)
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.drainLocked(ctx)
}

// WriteStatusChange bypasses the batch so the caller can ack the source
// message only after BigQuery accepted the row.
func (w *BigQueryWriter) WriteStatusChange(ctx context.Context, row types.OrderStatusChangeRow) error {
	if w.statusTable == "" {
		return errors.New("status changes table is not configured")
	}
	return w.insert(ctx, w.statusTable, []bigquery.ValueSaver{&row})
}

func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drainLocked(ctx)
}

func (w *BigQueryWriter) drainLocked(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	if err := w.insert(ctx, w.eventsTable, w.pending); err != nil {
		if !retryable(err) {
			w.pending = nil
		}
		return err
	}
	w.pending = nil
	return nil
}

func (w *BigQueryWriter) insert(ctx context.Context, table string, rows []bigquery.ValueSaver) error {
	wait := w.retry.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := w.client.InsertRows(ctx, table, rows)
		if err == nil {
			return nil
		}
		if attempt >= w.retry.MaxAttempts || !retryable(err) {
			return fmt.Errorf("insert %d rows into %s after %d attempt(s): %w", len(rows), table, attempt, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, w.retry.MaximumBackoff)
	}
}
