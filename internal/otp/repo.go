package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a delivery code repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderByIDLocked(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindRiderByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rider).Error; err != nil {
		return nil, err
	}
	return &rider, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// ClearExpiredCodes drops lapsed delivery codes in bulk. The maintenance
// cron runs this so stale hashes do not linger on abandoned orders.
func (r *repository) ClearExpiredCodes(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("delivery_otp_hash IS NOT NULL AND delivery_otp_expires_at < ?", cutoff).
		Updates(map[string]any{
			"delivery_otp_hash":       nil,
			"delivery_otp_expires_at": nil,
		})
	return res.RowsAffected, res.Error
}
