package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/internal/catalog"
	"github.com/tobiadeyinka/chowdash-backend/internal/wallet"
	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/geo"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/payloads"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
	"github.com/tobiadeyinka/chowdash-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type catalogGateway interface {
	GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	PriceSelection(ctx context.Context, vendorID uuid.UUID, selection []catalog.SelectionItem) (*catalog.PricedSelection, error)
}

type walletGateway interface {
	DebitForOrderTx(ctx context.Context, tx *gorm.DB, input wallet.DebitInput) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input wallet.CreditInput) (*models.WalletTransaction, error)
}

// Service drives the order lifecycle. Delivered is only reachable through the
// delivery code confirmation flow, confirmed only through rider assignment,
// and near_delivery only through tracking.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID, actor Actor) ([]models.OrderStatusEvent, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters Filters) (*OrderList, error)
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters Filters) (*OrderList, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, actor Actor) error
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	catalog  catalogGateway
	wallet   walletGateway
	policy   geo.FeePolicy
	delivery config.DeliveryConfig
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, catalogSvc catalogGateway, walletSvc walletGateway, policy geo.FeePolicy, delivery config.DeliveryConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog gateway required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet gateway required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		catalog:  catalogSvc,
		wallet:   walletSvc,
		policy:   policy,
		delivery: delivery,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.DropoffAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dropoff address required")
	}
	if err := geo.ValidateCoordinate(input.DropoffLat, input.DropoffLng); err != nil {
		return nil, err
	}

	vendor, err := s.catalog.GetVendor(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}
	if !vendor.IsOpen {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "vendor is closed")
	}

	distance, err := geo.DistanceKM(vendor.Location.Lat, vendor.Location.Lng, input.DropoffLat, input.DropoffLng)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckRadius(distance); err != nil {
		return nil, err
	}

	priced, err := s.catalog.PriceSelection(ctx, input.VendorID, input.Items)
	if err != nil {
		return nil, err
	}

	fee := s.policy.DeliveryFee(distance)
	total := priced.Subtotal.Add(fee).Round(2)

	now := time.Now().UTC()
	estPickup := now.Add(s.delivery.EstimatedPrepTime)
	estDelivery := estPickup.Add(time.Duration(geo.ETAMinutes(distance, "")) * time.Minute)

	order := &models.Order{
		ID:                    uuid.New(),
		CustomerID:            input.CustomerID,
		VendorID:              input.VendorID,
		Status:                enums.OrderStatusPending,
		PaymentStatus:         enums.PaymentStatusPending,
		Subtotal:              priced.Subtotal,
		DeliveryFee:           fee,
		Total:                 total,
		DistanceKM:            distance,
		PickupAddress:         vendor.Address,
		PickupLocation:        vendor.Location,
		DropoffAddress:        input.DropoffAddress,
		DropoffLocation:       types.GeographyPoint{Lat: input.DropoffLat, Lng: input.DropoffLng},
		EstimatedPickupTime:   &estPickup,
		EstimatedDeliveryTime: &estDelivery,
		Notes:                 input.Notes,
		Items:                 priced.Items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if _, err := s.wallet.DebitForOrderTx(ctx, tx, wallet.DebitInput{
			UserID:    input.CustomerID,
			OrderID:   order.ID,
			Amount:    total,
			Narration: fmt.Sprintf("payment for order at %s", vendor.Name),
		}); err != nil {
			return err
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"payment_status": enums.PaymentStatusPaid}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		order.PaymentStatus = enums.PaymentStatusPaid

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				VendorID:   order.VendorID,
				Total:      order.Total,
				DistanceKM: order.DistanceKM,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := canViewOrder(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID, actor Actor) ([]models.OrderStatusEvent, error) {
	if _, err := s.Get(ctx, orderID, actor); err != nil {
		return nil, err
	}
	events, err := s.repo.ListStatusEvents(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load status history")
	}
	return events, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters Filters) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	params.Limit = pagination.NormalizeLimit(params.Limit)
	items, err := s.repo.ListByCustomer(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return buildOrderList(items, params.Limit), nil
}

func (s *service) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters Filters) (*OrderList, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	params.Limit = pagination.NormalizeLimit(params.Limit)
	items, err := s.repo.ListByVendor(ctx, vendorID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return buildOrderList(items, params.Limit), nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	requiredRole, ok := transitionRoles[input.Target]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status cannot be set directly")
	}
	if input.Actor.Role != requiredRole && input.Actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot perform this transition")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByIDLocked(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := checkTransitionOwnership(input.Actor, row); err != nil {
			return err
		}
		if err := s.ApplyTransition(ctx, tx, row, input.Target, input.Actor); err != nil {
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

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByIDLocked(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := checkCancelPermission(input.Actor, row); err != nil {
			return err
		}
		if err := s.ApplyTransition(ctx, tx, row, enums.OrderStatusCanceled, input.Actor); err != nil {
			return err
		}

		updates := map[string]any{}
		if input.Reason != "" {
			reason := input.Reason
			row.CancelReason = &reason
			updates["cancel_reason"] = reason
		}
		if row.PaymentStatus == enums.PaymentStatusPaid {
			if _, err := s.wallet.CreditTx(ctx, tx, wallet.CreditInput{
				UserID:    row.CustomerID,
				OrderID:   &row.ID,
				Amount:    row.Total,
				Reference: fmt.Sprintf("order-%s-refund", row.ID),
				Narration: "refund for canceled order",
				Actor:     actorRef(input.Actor),
			}); err != nil {
				return err
			}
			row.PaymentStatus = enums.PaymentStatusRefunded
			updates["payment_status"] = enums.PaymentStatusRefunded
		}
		if len(updates) > 0 {
			if err := repo.UpdateOrder(ctx, row.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update canceled order")
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   row.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderCanceledEvent{
				OrderID:    row.ID,
				CustomerID: row.CustomerID,
				VendorID:   row.VendorID,
				RiderID:    row.RiderID,
				CanceledAt: time.Now().UTC(),
				Reason:     input.Reason,
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

// ApplyTransition validates and applies a single lifecycle edge inside the
// caller's transaction, recording the status event and emitting
// order_status_changed. Timestamps are stamped as the order crosses
// picked_up, delivered and canceled.
func (s *service) ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, actor Actor) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for transition")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	from := order.Status
	if !from.CanTransition(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed").WithDetails(map[string]interface{}{
			"from": from.String(),
			"to":   target.String(),
		})
	}

	now := time.Now().UTC()
	updates := map[string]any{"status": target}
	switch target {
	case enums.OrderStatusPickedUp:
		updates["actual_pickup_time"] = now
		order.ActualPickupTime = &now
	case enums.OrderStatusDelivered:
		updates["actual_delivery_time"] = now
		updates["delivery_otp_hash"] = nil
		updates["delivery_otp_expires_at"] = nil
		order.ActualDeliveryTime = &now
		order.DeliveryOTPHash = nil
		order.DeliveryOTPExpiresAt = nil
	case enums.OrderStatusCanceled:
		updates["canceled_at"] = now
		order.CanceledAt = &now
	}

	repo := s.repo.WithTx(tx)
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	statusEvent := &models.OrderStatusEvent{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   target,
	}
	if actor.UserID != uuid.Nil {
		actorID := actor.UserID
		actorRole := actor.Role
		statusEvent.ActorID = &actorID
		statusEvent.ActorRole = &actorRole
	}
	if err := repo.CreateStatusEvent(ctx, statusEvent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status event")
	}

	order.Status = target

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actorRef(actor),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			VendorID:   order.VendorID,
			RiderID:    order.RiderID,
			FromStatus: from,
			ToStatus:   target,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return err
	}

	if target == enums.OrderStatusDelivered && order.RiderID != nil {
		delivered := outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				VendorID:    order.VendorID,
				RiderID:     *order.RiderID,
				DeliveredAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, delivered); err != nil {
			return err
		}
	}
	return nil
}

// transitionRoles maps the statuses reachable through Transition to the role
// that owns the edge. Assignment, proximity, delivery confirmation and
// cancellation have dedicated flows.
var transitionRoles = map[enums.OrderStatus]enums.UserRole{
	enums.OrderStatusPreparing:      enums.UserRoleVendor,
	enums.OrderStatusReadyForPickup: enums.UserRoleVendor,
	enums.OrderStatusPickedUp:       enums.UserRoleRider,
	enums.OrderStatusInTransit:      enums.UserRoleRider,
}

func checkTransitionOwnership(actor Actor, order *models.Order) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	switch actor.Role {
	case enums.UserRoleVendor:
		if actor.VendorID == nil || *actor.VendorID != order.VendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to vendor")
		}
	case enums.UserRoleRider:
		if actor.RiderID == nil || order.RiderID == nil || *actor.RiderID != *order.RiderID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order not assigned to rider")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot perform this transition")
	}
	return nil
}

func checkCancelPermission(actor Actor, order *models.Order) error {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return nil
	case enums.UserRoleCustomer:
		if order.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be canceled by customer")
		}
	case enums.UserRoleVendor:
		if actor.VendorID == nil || *actor.VendorID != order.VendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to vendor")
		}
		switch order.Status {
		case enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.OrderStatusReadyForPickup:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be canceled by vendor")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot cancel orders")
	}
	return nil
}

func canViewOrder(actor Actor, order *models.Order) error {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return nil
	case enums.UserRoleCustomer:
		if order.CustomerID == actor.UserID {
			return nil
		}
	case enums.UserRoleVendor:
		if actor.VendorID != nil && *actor.VendorID == order.VendorID {
			return nil
		}
	case enums.UserRoleRider:
		if actor.RiderID != nil && order.RiderID != nil && *actor.RiderID == *order.RiderID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to user")
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func buildOrderList(items []models.Order, limit int) *OrderList {
	list := &OrderList{Items: items}
	if pagination.HasMore(len(items), limit) {
		list.Items = items[:limit]
		list.HasMore = true
		last := list.Items[len(list.Items)-1]
		list.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return list
}
