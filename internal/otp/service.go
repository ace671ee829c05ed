package otp

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
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/payloads"
	"github.com/tobiadeyinka/chowdash-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderTransitioner interface {
	ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, actor orders.Actor) error
}

// Service drives delivery confirmation. The code goes to the customer via
// the notification pipeline; the rider only ever submits what the customer
// reads back, so possession of the code proves handover.
type Service interface {
	Issue(ctx context.Context, input IssueInput) (*IssueResult, error)
	Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	orders   orderTransitioner
	delivery config.DeliveryConfig
	password config.PasswordConfig
}

// IssueInput requests a fresh delivery code for an order.
type IssueInput struct {
	OrderID     uuid.UUID
	RiderUserID uuid.UUID
}

// IssueResult reports when the issued code lapses. The code itself is never
// returned to the caller.
type IssueResult struct {
	OrderID   uuid.UUID
	ExpiresAt time.Time
}

// ConfirmInput submits the code collected from the customer.
type ConfirmInput struct {
	OrderID     uuid.UUID
	RiderUserID uuid.UUID
	Code        string
}

// NewService builds a delivery code service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, orderSvc orderTransitioner, delivery config.DeliveryConfig, password config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("otp repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		orders:   orderSvc,
		delivery: delivery,
		password: password,
	}, nil
}

// issuable reports whether a rider may request a code for an order in this
// status. A stored code exists only while the order is in transit or near
// delivery. Reissuing overwrites any previous code.
func issuable(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusInTransit, enums.OrderStatusNearDelivery:
		return true
	default:
		return false
	}
}

func (s *service) Issue(ctx context.Context, input IssueInput) (*IssueResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.RiderUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *IssueResult
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
		if !issuable(order.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery code not available in current state")
		}

		code, err := security.GenerateDeliveryCode()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate delivery code")
		}
		hash, err := security.HashDeliveryCode(code, s.password)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash delivery code")
		}

		expiresAt := time.Now().UTC().Add(s.delivery.OTPTTL)
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"delivery_otp_hash":       hash,
			"delivery_otp_expires_at": expiresAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store delivery code")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventDeliveryOTPIssued,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.RiderUserID, Role: string(enums.UserRoleRider)},
			Data: payloads.DeliveryOTPIssuedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				Code:       code,
				ExpiresAt:  expiresAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		result = &IssueResult{OrderID: order.ID, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.RiderUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Code) != security.DeliveryCodeDigits {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery code must be five digits")
	}

	var (
		order      *models.Order
		expiredErr error
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rider, err := repo.FindRiderByUserID(ctx, input.RiderUserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rider profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rider")
		}

		row, err := repo.FindOrderByIDLocked(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if row.RiderID == nil || *row.RiderID != rider.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order not assigned to rider")
		}

		if row.DeliveryOTPHash == nil {
			return pkgerrors.New(pkgerrors.CodeOTPNotFound, "no delivery code issued")
		}
		if row.DeliveryOTPExpiresAt == nil || time.Now().UTC().After(*row.DeliveryOTPExpiresAt) {
			// An expired code is cleared so the next attempt reads as missing
			// rather than expired. The closure returns nil here so the clear
			// commits; the expired error surfaces after the transaction.
			if err := repo.UpdateOrder(ctx, row.ID, map[string]any{
				"delivery_otp_hash":       nil,
				"delivery_otp_expires_at": nil,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear expired code")
			}
			expiredErr = pkgerrors.New(pkgerrors.CodeOTPExpired, "delivery code expired")
			return nil
		}

		match, err := security.VerifyDeliveryCode(input.Code, *row.DeliveryOTPHash)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify delivery code")
		}
		if !match {
			// The stored code survives a mismatch so the rider can retry.
			return pkgerrors.New(pkgerrors.CodeOTPMismatch, "delivery code does not match")
		}

		actor := orders.Actor{UserID: input.RiderUserID, Role: enums.UserRoleRider, RiderID: &rider.ID}
		if err := s.orders.ApplyTransition(ctx, tx, row, enums.OrderStatusDelivered, actor); err != nil {
			return err
		}
		order = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expiredErr != nil {
		return nil, expiredErr
	}
	return order, nil
}
