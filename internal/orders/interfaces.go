package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDLocked(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters Filters) ([]models.Order, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters Filters) ([]models.Order, error)
	ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error)
}

// Filters narrows order listings.
type Filters struct {
	Status *enums.OrderStatus
}
