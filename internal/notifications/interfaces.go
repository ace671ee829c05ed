package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

// Repository defines the persistence surface of stored notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateNotification(ctx context.Context, row *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, params pagination.Params) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	FindUserFCMToken(ctx context.Context, userID uuid.UUID) (*string, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
