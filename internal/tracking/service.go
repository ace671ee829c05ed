package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/internal/orders"
	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/geo"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/payloads"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderAccess interface {
	Get(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error)
	ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, actor orders.Actor) error
}

// Service records rider location pings and serves delivery snapshots.
type Service interface {
	RecordLocation(ctx context.Context, input RecordInput) (*models.DeliveryTracking, error)
	Snapshot(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*Snapshot, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	orders   orderAccess
	delivery config.DeliveryConfig
}

// RecordInput is one location ping from a rider device.
type RecordInput struct {
	OrderID     uuid.UUID
	RiderUserID uuid.UUID
	Lat         float64
	Lng         float64
	RecordedAt  time.Time
}

// Snapshot is the customer-facing view of a delivery in flight. Stale means
// the last ping predates the configured cutoff; Available false means no
// ping has arrived yet.
type Snapshot struct {
	OrderID     uuid.UUID
	OrderStatus enums.OrderStatus
	Available   bool
	Stale       bool
	LastPing    *models.DeliveryTracking
}

// NewService builds a tracking service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, orderSvc orderAccess, delivery config.DeliveryConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tracking repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order access required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, orders: orderSvc, delivery: delivery}, nil
}

func (s *service) RecordLocation(ctx context.Context, input RecordInput) (*models.DeliveryTracking, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.RiderUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := geo.ValidateCoordinate(input.Lat, input.Lng); err != nil {
		return nil, err
	}
	recordedAt := input.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	var row *models.DeliveryTracking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rider, err := repo.FindRiderByUserID(ctx, input.RiderUserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rider profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
		}

		order, err := repo.FindOrderByIDLocked(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.RiderID == nil || *order.RiderID != rider.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order not assigned to rider")
		}
		if !order.Status.IsActiveDelivery() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no active delivery")
		}

		distance, err := geo.DistanceKM(input.Lat, input.Lng, order.DropoffLocation.Lat, order.DropoffLocation.Lng)
		if err != nil {
			return err
		}
		eta := geo.ETAMinutes(distance, rider.TransportMode)
		location := types.GeographyPoint{Lat: input.Lat, Lng: input.Lng}

		ping := &models.DeliveryTracking{
			OrderID:                 order.ID,
			RiderID:                 rider.ID,
			Location:                location,
			DistanceToDestinationKM: distance,
			ETAMinutes:              eta,
			RecordedAt:              recordedAt,
		}
		if err := repo.CreateTracking(ctx, ping); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record tracking ping")
		}
		if err := repo.UpdateRiderLocation(ctx, rider.ID, location, recordedAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rider location")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventTrackingUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.RiderUserID, Role: string(enums.UserRoleRider)},
			Data: payloads.TrackingUpdatedEvent{
				OrderID:    order.ID,
				RiderID:    rider.ID,
				Lat:        input.Lat,
				Lng:        input.Lng,
				DistanceKM: distance,
				ETAMinutes: eta,
				RecordedAt: recordedAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if distance <= s.delivery.NearDeliveryKM && order.Status == enums.OrderStatusInTransit {
			actor := orders.Actor{UserID: input.RiderUserID, Role: enums.UserRoleRider, RiderID: &rider.ID}
			if err := s.orders.ApplyTransition(ctx, tx, order, enums.OrderStatusNearDelivery, actor); err != nil {
				return err
			}
			near := outbox.DomainEvent{
				EventType:     enums.EventOrderNearDelivery,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{UserID: input.RiderUserID, Role: string(enums.UserRoleRider)},
				Data: payloads.OrderNearDeliveryEvent{
					OrderID:    order.ID,
					CustomerID: order.CustomerID,
					RiderID:    rider.ID,
					DistanceKM: distance,
				},
			}
			if err := s.outbox.Emit(ctx, tx, near); err != nil {
				return err
			}
		}

		row = ping
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) Snapshot(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*Snapshot, error) {
	order, err := s.orders.Get(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{OrderID: order.ID, OrderStatus: order.Status}
	latest, err := s.repo.LatestForOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return snapshot, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest ping")
	}

	snapshot.Available = true
	snapshot.LastPing = latest
	if s.delivery.TrackingStaleCutoff > 0 && time.Since(latest.RecordedAt) > s.delivery.TrackingStaleCutoff {
		snapshot.Stale = true
	}
	return snapshot, nil
}
