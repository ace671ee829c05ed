package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
)

// WalletTransaction is the ledger row behind every balance movement.
// Reference is unique so gateway webhooks replay safely.
type WalletTransaction struct {
	ID        uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID  uuid.UUID                     `gorm:"column:wallet_id;type:uuid;not null;index"`
	UserID    uuid.UUID                     `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID                    `gorm:"column:order_id;type:uuid;index"`
	Type      enums.WalletTransactionType   `gorm:"column:type;type:text;not null"`
	Status    enums.WalletTransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount    decimal.Decimal               `gorm:"column:amount;type:numeric(14,2);not null"`
	Reference string                        `gorm:"column:reference;not null;uniqueIndex"`
	Provider  *string                       `gorm:"column:provider"`
	Narration *string                       `gorm:"column:narration"`
	CreatedAt time.Time                     `gorm:"column:created_at;autoCreateTime;index"`
}
