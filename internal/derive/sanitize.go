package derive

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

const (
	OrderNumberPrefix   = "ORD"
	InvoiceNumberPrefix = "INV"
)

var (
	slugInvalidRe   = regexp.MustCompile(`[^a-z0-9]+`)
	numberInvalidRe = regexp.MustCompile(`[^A-Z0-9-]+`)
	dashRunRe       = regexp.MustCompile(`-{2,}`)
)

// Slugify lower-cases s and joins alphanumeric runs with single dashes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalidRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeEmail trims and lower-cases an address. Values without "@" are rejected.
func NormalizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.Contains(s, "@") {
		return ""
	}
	return s
}

// SanitizeOrderNumber canonicalizes free-text order references ("#ord 241017-0042",
// "241017-0042") into "ORD-241017-0042".
func SanitizeOrderNumber(raw string) string {
	return sanitizeBusinessNumber(raw, OrderNumberPrefix, "ORDER")
}

// SanitizeInvoiceNumber canonicalizes invoice references into "INV-...".
func SanitizeInvoiceNumber(raw string) string {
	return sanitizeBusinessNumber(raw, InvoiceNumberPrefix, "INVOICE")
}

func sanitizeBusinessNumber(raw, prefix, longPrefix string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimLeft(s, "#")
	s = strings.TrimSpace(s)
	for _, p := range []string{longPrefix, prefix} {
		if strings.HasPrefix(s, p) {
			s = strings.TrimPrefix(s, p)
			break
		}
	}
	s = strings.TrimLeft(s, " #:-_")
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = numberInvalidRe.ReplaceAllString(s, "")
	s = dashRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return ""
	}
	return prefix + "-" + s
}

// NewOrderNumber returns a fresh human-facing order number.
func NewOrderNumber(now time.Time) string {
	return newBusinessNumber(OrderNumberPrefix, now)
}

// NewInvoiceNumber returns a fresh human-facing invoice number.
func NewInvoiceNumber(now time.Time) string {
	return newBusinessNumber(InvoiceNumberPrefix, now)
}

func newBusinessNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%06d", prefix, now.UTC().Format("060102"), rand.IntN(1_000_000))
}
