package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

// Order is the aggregate root of the delivery lifecycle. CustomerID and
// VendorID are soft references: the rows they point at may be removed later
// without cascading into order history.
type Order struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID            uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID              uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null;index"`
	RiderID               *uuid.UUID           `gorm:"column:rider_id;type:uuid;index"`
	Status                enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending';index"`
	PaymentStatus         enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Subtotal              decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee           decimal.Decimal      `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	Total                 decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	DistanceKM            float64              `gorm:"column:distance_km;type:numeric(8,3);not null"`
	PickupAddress         string               `gorm:"column:pickup_address;not null"`
	PickupLocation        types.GeographyPoint `gorm:"column:pickup_location;type:geography(Point,4326);not null"`
	DropoffAddress        string               `gorm:"column:dropoff_address;not null"`
	DropoffLocation       types.GeographyPoint `gorm:"column:dropoff_location;type:geography(Point,4326);not null"`
	EstimatedPickupTime   *time.Time           `gorm:"column:estimated_pickup_time"`
	EstimatedDeliveryTime *time.Time           `gorm:"column:estimated_delivery_time"`
	ActualPickupTime      *time.Time           `gorm:"column:actual_pickup_time"`
	ActualDeliveryTime    *time.Time           `gorm:"column:actual_delivery_time"`
	DeliveryOTPHash       *string              `gorm:"column:delivery_otp_hash"`
	DeliveryOTPExpiresAt  *time.Time           `gorm:"column:delivery_otp_expires_at"`
	CancelReason          *string              `gorm:"column:cancel_reason"`
	CanceledAt            *time.Time           `gorm:"column:canceled_at"`
	Notes                 *string              `gorm:"column:notes"`
	Items                 []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
