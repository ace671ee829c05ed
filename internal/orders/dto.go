package orders

import (
	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/internal/catalog"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
)

// CreateInput captures everything needed to place an order.
type CreateInput struct {
	CustomerID     uuid.UUID
	VendorID       uuid.UUID
	DropoffAddress string
	DropoffLat     float64
	DropoffLng     float64
	Notes          *string
	Items          []catalog.SelectionItem
}

// Actor identifies who is driving an order operation.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	VendorID *uuid.UUID
	RiderID  *uuid.UUID
}

// TransitionInput moves an order along its lifecycle.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   Actor
}

// CancelInput cancels a non-terminal order.
type CancelInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   Actor
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Items      []models.Order
	NextCursor string
	HasMore    bool
}
