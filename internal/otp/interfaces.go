package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
)

// Repository defines the persistence surface of the delivery code flow.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderByIDLocked(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindRiderByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ClearExpiredCodes(ctx context.Context, cutoff time.Time) (int64, error)
}
