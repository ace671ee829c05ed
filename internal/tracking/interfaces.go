package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

// Repository defines persistence operations for delivery tracking pings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderByIDLocked(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindRiderByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	CreateTracking(ctx context.Context, row *models.DeliveryTracking) error
	LatestForOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryTracking, error)
	UpdateRiderLocation(ctx context.Context, riderID uuid.UUID, location types.GeographyPoint, at time.Time) error
	DeleteForClosedOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
