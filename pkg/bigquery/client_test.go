package bigquery

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/gatewaysync/pkg/config"
)

func TestConfiguredTablesTrimsAndSkipsBlank(t *testing.T) {
	tables := configuredTables(config.BigQueryConfig{
		EventsTable:        " webhook_events ",
		StatusChangesTable: "  ",
	})
	if len(tables) != 1 || tables[0] != "webhook_events" {
		t.Fatalf("unexpected tables %v", tables)
	}

	tables = configuredTables(config.BigQueryConfig{
		EventsTable:        "webhook_events",
		StatusChangesTable: "order_status_changes",
	})
	if len(tables) != 2 || tables[1] != "order_status_changes" {
		t.Fatalf("unexpected tables %v", tables)
	}
}

func TestNewClientRejectsIncompleteConfig(t *testing.T) {
	ctx := context.Background()
	bq := config.BigQueryConfig{Dataset: "payments", EventsTable: "webhook_events"}

	if _, err := NewClient(ctx, config.GCPConfig{}, bq, nil); err == nil || !strings.Contains(err.Error(), "project") {
		t.Fatalf("expected project id error, got %v", err)
	}
	gcp := config.GCPConfig{ProjectID: "gatewaysync-dev"}
	if _, err := NewClient(ctx, gcp, config.BigQueryConfig{EventsTable: "webhook_events"}, nil); err == nil || !strings.Contains(err.Error(), "dataset") {
		t.Fatalf("expected dataset error, got %v", err)
	}
	if _, err := NewClient(ctx, gcp, config.BigQueryConfig{Dataset: "payments"}, nil); err == nil || !strings.Contains(err.Error(), "tables") {
		t.Fatalf("expected tables error, got %v", err)
	}
}

func TestDescribeMetadataErr(t *testing.T) {
	missing := describeMetadataErr("table", "webhook_events", &googleapi.Error{Code: http.StatusNotFound})
	if missing.Error() != `table "webhook_events" does not exist` {
		t.Fatalf("unexpected message %q", missing)
	}

	denied := &googleapi.Error{Code: http.StatusForbidden}
	err := describeMetadataErr("dataset", "payments", denied)
	if !errors.Is(err, denied) {
		t.Fatalf("expected cause to be kept, got %v", err)
	}
}

func TestZeroClientIsNotInitialized(t *testing.T) {
	var c *Client
	if err := c.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
	if err := (&Client{}).InsertRows(context.Background(), "webhook_events", nil); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("closing a nil client: %v", err)
	}
}
