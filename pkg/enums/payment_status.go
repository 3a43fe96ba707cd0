package enums

import "fmt"

// PaymentStatus tracks the payment lifecycle of an order or invoice.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusExpired           PaymentStatus = "expired"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusDisputed          PaymentStatus = "disputed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusCancelled,
	PaymentStatusExpired,
	PaymentStatusRefunded,
	PaymentStatusPartiallyRefunded,
	PaymentStatusDisputed,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no implicit transition may leave this status.
// Partial refunds stay open so a later full refund or dispute can land.
func (p PaymentStatus) IsTerminal() bool {
	switch p {
	case PaymentStatusRefunded, PaymentStatusCancelled, PaymentStatusExpired:
		return true
	}
	return false
}

// IsPaidEquivalent reports whether money was captured at some point.
func (p PaymentStatus) IsPaidEquivalent() bool {
	switch p {
	case PaymentStatusPaid, PaymentStatusPartiallyRefunded, PaymentStatusRefunded, PaymentStatusDisputed:
		return true
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
