package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

// Vendor represents a storefront customers order from.
type Vendor struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID           `gorm:"column:owner_user_id;type:uuid;not null"`
	Name        string              `gorm:"column:name;not null"`
	Description *string             `gorm:"column:description"`
	Phone       *string             `gorm:"column:phone"`
	Address     string              `gorm:"column:address;not null"`
	Location    types.GeographyPoint `gorm:"column:location;type:geography(Point,4326);not null"`
	IsOpen      bool                `gorm:"column:is_open;not null;default:true"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
