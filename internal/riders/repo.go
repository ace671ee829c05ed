package riders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rider repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRider(ctx context.Context, rider *models.Rider) error {
	if rider.ID == uuid.Nil {
		rider.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rider).Error
}

func (r *repository) FindByID(ctx context.Context, riderID uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	err := r.db.WithContext(ctx).
		Where("id = ?", riderID).
		First(&rider).Error
	if err != nil {
		return nil, err
	}
	return &rider, nil
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&rider).Error
	if err != nil {
		return nil, err
	}
	return &rider, nil
}

func (r *repository) FindByUserIDLocked(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&rider).Error
	if err != nil {
		return nil, err
	}
	return &rider, nil
}

func (r *repository) UpdateRider(ctx context.Context, riderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Rider{}).
		Where("id = ?", riderID).
		Updates(updates).Error
}
