package controllers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/api/middleware"
	"github.com/tobiadeyinka/chowdash-backend/internal/orders"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
)

type vendorDirectory interface {
	FindVendorByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Vendor, error)
}

type riderDirectory interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
}

// ActorResolver turns the authenticated user into an order actor, attaching
// the vendor or rider identity the role implies. A vendor or rider without a
// profile row resolves to a bare actor; the services reject it downstream.
type ActorResolver struct {
	Vendors vendorDirectory
	Riders  riderDirectory
}

func (a *ActorResolver) Resolve(ctx context.Context) (orders.Actor, error) {
	userID := middleware.ActorUserID(ctx)
	if userID == uuid.Nil {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity")
	}

	actor := orders.Actor{
		UserID: userID,
		Role:   middleware.RoleFromContext(ctx),
	}

	switch actor.Role {
	case enums.UserRoleVendor:
		if a.Vendors == nil {
			break
		}
		vendor, err := a.Vendors.FindVendorByOwner(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve vendor")
		}
		actor.VendorID = &vendor.ID
	case enums.UserRoleRider:
		if a.Riders == nil {
			break
		}
		rider, err := a.Riders.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve rider")
		}
		actor.RiderID = &rider.ID
	}

	return actor, nil
}
