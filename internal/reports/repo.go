package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reports repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListDeliveredBetween(ctx context.Context, from, to time.Time, vendorID *uuid.UUID) ([]DeliveredOrder, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("id AS order_id, vendor_id, rider_id, actual_pickup_time, actual_delivery_time, estimated_delivery_time").
		Where("status = ?", enums.OrderStatusDelivered).
		Where("actual_delivery_time >= ? AND actual_delivery_time < ?", from, to)
	if vendorID != nil {
		query = query.Where("vendor_id = ?", *vendorID)
	}

	var rows []DeliveredOrder
	if err := query.Order("actual_delivery_time ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountByStatusBetween(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
