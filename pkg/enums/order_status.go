package enums

import "fmt"

// OrderStatus tracks the delivery lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusPickedUp       OrderStatus = "picked_up"
	OrderStatusInTransit      OrderStatus = "in_transit"
	OrderStatusNearDelivery   OrderStatus = "near_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCanceled       OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusPickedUp,
	OrderStatusInTransit,
	OrderStatusNearDelivery,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

// orderStatusEdges is the allowed transition table. Any non-terminal status
// may additionally move to canceled.
var orderStatusEdges = map[OrderStatus]OrderStatus{
	OrderStatusPending:        OrderStatusConfirmed,
	OrderStatusConfirmed:      OrderStatusPreparing,
	OrderStatusPreparing:      OrderStatusReadyForPickup,
	OrderStatusReadyForPickup: OrderStatusPickedUp,
	OrderStatusPickedUp:       OrderStatusInTransit,
	OrderStatusInTransit:      OrderStatusNearDelivery,
	OrderStatusNearDelivery:   OrderStatusDelivered,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCanceled
}

// IsActiveDelivery reports whether a rider is occupied by an order in this
// status (confirmed through near_delivery inclusive).
func (o OrderStatus) IsActiveDelivery() bool {
	switch o {
	case OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusReadyForPickup,
		OrderStatusPickedUp,
		OrderStatusInTransit,
		OrderStatusNearDelivery:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the edge from o to target is allowed.
func (o OrderStatus) CanTransition(target OrderStatus) bool {
	if !o.IsValid() || !target.IsValid() {
		return false
	}
	if target == OrderStatusCanceled {
		return !o.IsTerminal()
	}
	return orderStatusEdges[o] == target
}

// ActiveDeliveryStatuses returns the statuses during which a rider is occupied.
func ActiveDeliveryStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusReadyForPickup,
		OrderStatusPickedUp,
		OrderStatusInTransit,
		OrderStatusNearDelivery,
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
