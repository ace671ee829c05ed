package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when an order clears validation and payment.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	VendorID   uuid.UUID       `json:"vendor_id"`
	Total      decimal.Decimal `json:"total"`
	DistanceKM float64         `json:"distance_km"`
}

// OrderAssignedEvent is emitted when a rider wins the claim on an order.
type OrderAssignedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	RiderID    uuid.UUID `json:"rider_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// OrderStatusChangedEvent covers every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	VendorID   uuid.UUID         `json:"vendor_id"`
	RiderID    *uuid.UUID        `json:"rider_id,omitempty"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
}

// OrderNearDeliveryEvent fires once the rider crosses the proximity threshold.
type OrderNearDeliveryEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	RiderID    uuid.UUID `json:"rider_id"`
	DistanceKM float64   `json:"distance_km"`
}

// OrderDeliveredEvent closes out a delivery.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	RiderID     uuid.UUID `json:"rider_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderCanceledEvent is emitted whenever a non-terminal order is canceled.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID  `json:"order_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	VendorID   uuid.UUID  `json:"vendor_id"`
	RiderID    *uuid.UUID `json:"rider_id,omitempty"`
	CanceledAt time.Time  `json:"canceled_at"`
	Reason     string     `json:"reason,omitempty"`
}

// TrackingUpdatedEvent carries a location ping for live subscribers.
type TrackingUpdatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	RiderID    uuid.UUID `json:"rider_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	DistanceKM float64   `json:"distance_km"`
	ETAMinutes int       `json:"eta_minutes"`
	RecordedAt time.Time `json:"recorded_at"`
}

// WalletMovementEvent reports a completed debit or credit.
type WalletMovementEvent struct {
	TransactionID uuid.UUID                   `json:"transaction_id"`
	UserID        uuid.UUID                   `json:"user_id"`
	OrderID       *uuid.UUID                  `json:"order_id,omitempty"`
	Type          enums.WalletTransactionType `json:"type"`
	Amount        decimal.Decimal             `json:"amount"`
	Reference     string                      `json:"reference"`
}

// RiderStatusChangedEvent reports verification progress on a rider profile.
type RiderStatusChangedEvent struct {
	RiderID uuid.UUID         `json:"rider_id"`
	UserID  uuid.UUID         `json:"user_id"`
	Status  enums.RiderStatus `json:"status"`
}

// DeliveryOTPIssuedEvent tells the consumer to push the code to the customer.
type DeliveryOTPIssuedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Code       string    `json:"code"`
	ExpiresAt  time.Time `json:"expires_at"`
}
