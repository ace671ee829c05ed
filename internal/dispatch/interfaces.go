package dispatch

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

// Repository defines persistence operations for the assignment queue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListUnassignedOrders(ctx context.Context, params pagination.Params) ([]models.Order, error)
	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindRiderByUserIDLocked(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	CountActiveOrdersByRider(ctx context.Context, riderID uuid.UUID) (int64, error)
	ClaimOrder(ctx context.Context, orderID, riderID uuid.UUID, updates map[string]any) (bool, error)
	CreateStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error
	CreateTracking(ctx context.Context, row *models.DeliveryTracking) error
}
