package derive

import (
	"strings"
	"testing"
	"time"
)

func TestSanitizeOrderNumber(t *testing.T) {
	cases := map[string]string{
		"ORD-241017-004210":    "ORD-241017-004210",
		"#ord 241017-004210":   "ORD-241017-004210",
		"order #241017_004210": "ORD-241017-004210",
		"241017-004210":        "ORD-241017-004210",
		"  ":                   "",
		"#":                    "",
	}
	for raw, want := range cases {
		if got := SanitizeOrderNumber(raw); got != want {
			t.Fatalf("SanitizeOrderNumber(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestSanitizeInvoiceNumber(t *testing.T) {
	if got := SanitizeInvoiceNumber("invoice 42"); got != "INV-42" {
		t.Fatalf("unexpected invoice number %q", got)
	}
	if got := SanitizeInvoiceNumber("INV--42"); got != "INV-42" {
		t.Fatalf("unexpected invoice number %q", got)
	}
}

func TestGeneratedNumbersSurviveSanitizing(t *testing.T) {
	now := time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC)
	number := NewOrderNumber(now)
	if !strings.HasPrefix(number, "ORD-241017-") {
		t.Fatalf("unexpected order number %q", number)
	}
	if SanitizeOrderNumber(number) != number {
		t.Fatalf("generated number %q is not canonical", number)
	}
	invoice := NewInvoiceNumber(now)
	if SanitizeInvoiceNumber(invoice) != invoice {
		t.Fatalf("generated invoice number %q is not canonical", invoice)
	}
}

func TestSlugifyAndEmail(t *testing.T) {
	if got := Slugify("  Deluxe Widget (Blue) "); got != "deluxe-widget-blue" {
		t.Fatalf("unexpected slug %q", got)
	}
	if got := NormalizeEmail(" Jane@Example.COM "); got != "jane@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
	if got := NormalizeEmail("not-an-email"); got != "" {
		t.Fatalf("expected rejection, got %q", got)
	}
}
