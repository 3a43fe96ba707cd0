package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateSQLMigrationWritesValidFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 9, 8, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add Dispute Reason!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260302090800_add_dispute_reason.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}

	if _, err := createSQLMigration(dir, "add dispute reason", now); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected collision error, got %v", err)
	}
	if _, err := createSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected error for unusable name")
	}
}

func TestValidateBodyRejectsBrokenFiles(t *testing.T) {
	cases := map[string]string{
		"missing down": "-- +goose Up\nSELECT 1;\n",
		"reversed":     "-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n",
		"unbalanced":   "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 1;\n",
	}
	for name, body := range cases {
		if err := validateBody(body); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_orders.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected filename error")
	}
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	if err := ValidateDir(DefaultDir); err != nil {
		t.Fatalf("embedded migrations: %v", err)
	}
}
