package enums

import "fmt"

// DeliveryStatus describes the allowed values for the delivery_status column on orders.
//
// The status only advances forward along
// pending -> placed/processing -> accepted -> delivered, or diverts to
// failed from any non-terminal state. Delivered and failed are terminal
// for automated transitions; manual replay is an operator action.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusPlaced     DeliveryStatus = "placed"
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusAccepted   DeliveryStatus = "accepted"
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusFailed     DeliveryStatus = "failed"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusPlaced,
	DeliveryStatusProcessing,
	DeliveryStatusAccepted,
	DeliveryStatusDelivered,
	DeliveryStatusFailed,
}

var deliveryStatusRank = map[DeliveryStatus]int{
	DeliveryStatusPending:    0,
	DeliveryStatusPlaced:     1,
	DeliveryStatusProcessing: 1,
	DeliveryStatusAccepted:   2,
	DeliveryStatusDelivered:  3,
}

// IsValid reports whether the value matches the canonical delivery status enum.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether automated transitions out of the status are disallowed.
func (d DeliveryStatus) IsTerminal() bool {
	return d == DeliveryStatusDelivered || d == DeliveryStatusFailed
}

// InFlight reports whether fulfillment is already underway or completed, meaning
// a new fulfillment attempt must short-circuit.
func (d DeliveryStatus) InFlight() bool {
	switch d {
	case DeliveryStatusProcessing, DeliveryStatusAccepted, DeliveryStatusDelivered:
		return true
	default:
		return false
	}
}

// CanAdvanceTo reports whether the transition from d to next moves forward.
// Failed is reachable from any non-terminal state.
func (d DeliveryStatus) CanAdvanceTo(next DeliveryStatus) bool {
	if d.IsTerminal() {
		return false
	}
	if next == DeliveryStatusFailed {
		return true
	}
	from, ok := deliveryStatusRank[d]
	if !ok {
		return false
	}
	to, ok := deliveryStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// ParseDeliveryStatus converts the raw string to DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
