package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
)

// OrderStatusEvent records every status transition an order goes through.
// Reports derive delivery durations from these rows.
type OrderStatusEvent struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;type:text;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:text;not null"`
	ActorID    *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	ActorRole  *enums.UserRole   `gorm:"column:actor_role;type:text"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
