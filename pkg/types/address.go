package types

import "strings"

// Address is a postal address snapshot stored as JSON on documents.
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// IsEmpty reports whether the address carries no routable information.
func (a *Address) IsEmpty() bool {
	if a == nil {
		return true
	}
	return strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.PostalCode) == "" &&
		strings.TrimSpace(a.Country) == ""
}

// MergeAddress fills empty fields of current with values from incoming.
// Non-empty fields of current are never replaced.
func MergeAddress(current, incoming *Address) *Address {
	if incoming.IsEmpty() {
		return current
	}
	if current.IsEmpty() {
		clone := *incoming
		return &clone
	}
	merged := *current
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = strings.TrimSpace(src)
		}
	}
	fill(&merged.Name, incoming.Name)
	fill(&merged.Line1, incoming.Line1)
	fill(&merged.Line2, incoming.Line2)
	fill(&merged.City, incoming.City)
	fill(&merged.State, incoming.State)
	fill(&merged.PostalCode, incoming.PostalCode)
	fill(&merged.Country, incoming.Country)
	fill(&merged.Phone, incoming.Phone)
	return &merged
}
