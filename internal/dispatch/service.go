package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/geo"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/payloads"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the rider-facing claim queue. Assignment is first come,
// first served: the conditional claim decides races, not the queue order.
type Service interface {
	AvailableOrders(ctx context.Context, riderUserID uuid.UUID, params pagination.Params) (*QueueList, error)
	Assign(ctx context.Context, input AssignInput) (*models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	delivery config.DeliveryConfig
}

// AssignInput is a rider's claim on an unassigned order.
type AssignInput struct {
	OrderID     uuid.UUID
	RiderUserID uuid.UUID
}

// QueueList is a cursor page of claimable orders.
type QueueList struct {
	Items      []models.Order
	NextCursor string
	HasMore    bool
}

// NewService builds a dispatch service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, delivery config.DeliveryConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, delivery: delivery}, nil
}

func (s *service) AvailableOrders(ctx context.Context, riderUserID uuid.UUID, params pagination.Params) (*QueueList, error) {
	if riderUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	params.Limit = pagination.NormalizeLimit(params.Limit)

	items, err := s.repo.ListUnassignedOrders(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unassigned orders")
	}
	list := &QueueList{Items: items}
	if pagination.HasMore(len(items), params.Limit) {
		list.Items = items[:params.Limit]
		list.HasMore = true
		last := list.Items[len(list.Items)-1]
		list.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return list, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.RiderUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rider, err := repo.FindRiderByUserIDLocked(ctx, input.RiderUserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rider profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
		}
		if rider.Status != enums.RiderStatusActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "rider is not verified")
		}
		if !rider.IsOnline {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rider is offline")
		}

		active, err := repo.CountActiveOrdersByRider(ctx, rider.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active deliveries")
		}
		if active > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rider already on a delivery")
		}

		row, err := repo.FindOrderByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := time.Now().UTC()
		eta := geo.ETAMinutes(row.DistanceKM, rider.TransportMode)
		estDelivery := now.Add(s.delivery.EstimatedPrepTime).Add(time.Duration(eta) * time.Minute)

		claimed, err := repo.ClaimOrder(ctx, row.ID, rider.ID, map[string]any{
			"estimated_delivery_time": estDelivery,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already assigned")
		}

		riderID := rider.ID
		row.RiderID = &riderID
		row.Status = enums.OrderStatusConfirmed
		row.EstimatedDeliveryTime = &estDelivery

		statusEvent := &models.OrderStatusEvent{
			OrderID:    row.ID,
			FromStatus: enums.OrderStatusPending,
			ToStatus:   enums.OrderStatusConfirmed,
		}
		actorID := input.RiderUserID
		actorRole := enums.UserRoleRider
		statusEvent.ActorID = &actorID
		statusEvent.ActorRole = &actorRole
		if err := repo.CreateStatusEvent(ctx, statusEvent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status event")
		}

		if rider.CurrentLocation != nil {
			distance, derr := geo.DistanceKM(rider.CurrentLocation.Lat, rider.CurrentLocation.Lng, row.DropoffLocation.Lat, row.DropoffLocation.Lng)
			if derr == nil {
				seed := &models.DeliveryTracking{
					OrderID:                 row.ID,
					RiderID:                 rider.ID,
					Location:                *rider.CurrentLocation,
					DistanceToDestinationKM: distance,
					ETAMinutes:              geo.ETAMinutes(distance, rider.TransportMode),
					RecordedAt:              now,
				}
				if err := repo.CreateTracking(ctx, seed); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed tracking")
				}
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   row.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.RiderUserID, Role: string(enums.UserRoleRider)},
			Data: payloads.OrderAssignedEvent{
				OrderID:    row.ID,
				CustomerID: row.CustomerID,
				VendorID:   row.VendorID,
				RiderID:    rider.ID,
				AssignedAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		order = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
