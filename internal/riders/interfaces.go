package riders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
)

// Repository defines the persistence surface of rider profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRider(ctx context.Context, rider *models.Rider) error
	FindByID(ctx context.Context, riderID uuid.UUID) (*models.Rider, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	FindByUserIDLocked(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	UpdateRider(ctx context.Context, riderID uuid.UUID, updates map[string]any) error
}
