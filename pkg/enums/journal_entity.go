package enums

import "fmt"

// JournalEntityType names the document a journal entry is attached to.
type JournalEntityType string

const (
	JournalEntityOrder   JournalEntityType = "order"
	JournalEntityInvoice JournalEntityType = "invoice"
)

// IsValid reports whether the value is a known JournalEntityType.
func (t JournalEntityType) IsValid() bool {
	return t == JournalEntityOrder || t == JournalEntityInvoice
}

// ParseJournalEntityType converts raw input into a JournalEntityType.
func ParseJournalEntityType(value string) (JournalEntityType, error) {
	candidate := JournalEntityType(value)
	if candidate.IsValid() {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid journal entity type %q", value)
}
