package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tracking repository bound to the provided DB.
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

func (r *repository) CreateTracking(ctx context.Context, row *models.DeliveryTracking) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// LatestForOrder picks the most recent ping by device timestamp. Rows can
// land out of order, so recorded_at wins over insert order.
func (r *repository) LatestForOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryTracking, error) {
	var row models.DeliveryTracking
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("recorded_at DESC, created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateRiderLocation(ctx context.Context, riderID uuid.UUID, location types.GeographyPoint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Rider{}).
		Where("id = ?", riderID).
		Updates(map[string]any{
			"current_location": location,
			"last_location_at": at,
		}).Error
}

// DeleteForClosedOrdersBefore prunes ping history for orders that reached a
// terminal status, keeping the table bounded. Live deliveries are untouched.
func (r *repository) DeleteForClosedOrdersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("recorded_at < ?", cutoff).
		Where("order_id IN (?)", r.db.
			Model(&models.Order{}).
			Select("id").
			Where("status IN ?", []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCanceled})).
		Delete(&models.DeliveryTracking{})
	return res.RowsAffected, res.Error
}
