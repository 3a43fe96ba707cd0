package enums

import "fmt"

// FulfillmentStatus is an ordered ladder; only Cancelled sits outside it.
type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled     FulfillmentStatus = "unfulfilled"
	FulfillmentStatusAwaitingCapture FulfillmentStatus = "awaiting_capture"
	FulfillmentStatusReadyToShip     FulfillmentStatus = "ready_to_ship"
	FulfillmentStatusShipped         FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered       FulfillmentStatus = "delivered"
	FulfillmentStatusCancelled       FulfillmentStatus = "cancelled"
)

var fulfillmentLadder = []FulfillmentStatus{
	FulfillmentStatusUnfulfilled,
	FulfillmentStatusAwaitingCapture,
	FulfillmentStatusReadyToShip,
	FulfillmentStatusShipped,
	FulfillmentStatusDelivered,
}

// String implements fmt.Stringer.
func (f FulfillmentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (f FulfillmentStatus) IsValid() bool {
	return f == FulfillmentStatusCancelled || f.Rank() >= 0
}

// Rank returns the ladder position, or -1 for cancelled and unknown values.
func (f FulfillmentStatus) Rank() int {
	for i, candidate := range fulfillmentLadder {
		if candidate == f {
			return i
		}
	}
	return -1
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	candidate := FulfillmentStatus(value)
	if candidate.IsValid() {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
