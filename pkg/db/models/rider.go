package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

// Rider is the courier profile attached to a user account.
type Rider struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID             `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	TransportMode      enums.TransportMode   `gorm:"column:transport_mode;type:text;not null;default:'bike'"`
	Status             enums.RiderStatus     `gorm:"column:status;type:text;not null;default:'inactive'"`
	IsOnline           bool                  `gorm:"column:is_online;not null;default:false"`
	CurrentLocation    *types.GeographyPoint `gorm:"column:current_location;type:geography(Point,4326)"`
	LastLocationAt     *time.Time            `gorm:"column:last_location_at"`
	IDDocumentURL      *string               `gorm:"column:id_document_url"`
	VehicleDocumentURL *string               `gorm:"column:vehicle_document_url"`
	VerifiedAt         *time.Time            `gorm:"column:verified_at"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
