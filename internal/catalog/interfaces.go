package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

// Repository defines persistence operations for vendors and products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateVendor(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error)
	FindVendorByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindVendorByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Vendor, error)
	UpdateVendor(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListVendors(ctx context.Context, params pagination.Params, openOnly bool) ([]models.Vendor, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListProductsByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params, availableOnly bool) ([]models.Product, error)
}
