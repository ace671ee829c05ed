package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeliveredOrder is the slice of an order the performance report needs.
type DeliveredOrder struct {
	OrderID               uuid.UUID
	VendorID              uuid.UUID
	RiderID               *uuid.UUID
	ActualPickupTime      *time.Time
	ActualDeliveryTime    *time.Time
	EstimatedDeliveryTime *time.Time
}

// Repository defines the read surface of delivery performance reporting.
type Repository interface {
	ListDeliveredBetween(ctx context.Context, from, to time.Time, vendorID *uuid.UUID) ([]DeliveredOrder, error)
	CountByStatusBetween(ctx context.Context, from, to time.Time) (map[string]int64, error)
}
