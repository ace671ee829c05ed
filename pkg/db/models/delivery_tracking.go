package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

// DeliveryTracking is an append-only ping of a rider's position for an order.
// RecordedAt carries the device timestamp; rows may arrive out of order and
// the snapshot reader picks the latest RecordedAt.
type DeliveryTracking struct {
	ID                      uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID                 uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	RiderID                 uuid.UUID            `gorm:"column:rider_id;type:uuid;not null"`
	Location                types.GeographyPoint `gorm:"column:location;type:geography(Point,4326);not null"`
	DistanceToDestinationKM float64              `gorm:"column:distance_to_destination_km;type:numeric(8,3);not null"`
	ETAMinutes              int                  `gorm:"column:eta_minutes;not null"`
	RecordedAt              time.Time            `gorm:"column:recorded_at;not null;index"`
	CreatedAt               time.Time            `gorm:"column:created_at;autoCreateTime"`
}
