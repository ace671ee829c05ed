package dispatch

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dispatch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListUnassignedOrders walks the claim queue oldest first. The query is
// served by the partial index on pending unassigned orders.
func (r *repository) ListUnassignedOrders(ctx context.Context, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND rider_id IS NULL", enums.OrderStatusPending).
		Order("created_at ASC, id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindRiderByUserIDLocked(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
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

func (r *repository) CountActiveOrdersByRider(ctx context.Context, riderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("rider_id = ? AND status IN ?", riderID, enums.ActiveDeliveryStatuses()).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ClaimOrder compare-and-sets the assignment. Zero rows affected means a
// concurrent rider won the claim or the order left pending.
func (r *repository) ClaimOrder(ctx context.Context, orderID, riderID uuid.UUID, updates map[string]any) (bool, error) {
	set := map[string]any{
		"rider_id": riderID,
		"status":   enums.OrderStatusConfirmed,
	}
	for column, value := range updates {
		set[column] = value
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND rider_id IS NULL", orderID, enums.OrderStatusPending).
		Updates(set)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) CreateTracking(ctx context.Context, row *models.DeliveryTracking) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}
