package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/fcm"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/payloads"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/registry"
)

// ConsumerName scopes idempotency keys for this subscriber.
const ConsumerName = "notifications-worker"

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type pusher interface {
	Send(ctx context.Context, msg fcm.Message) (string, error)
}

// InboundEvent is a Pub/Sub message after envelope decoding.
type InboundEvent struct {
	EventID   uuid.UUID
	EventType enums.OutboxEventType
	Version   int
	Payload   json.RawMessage
}

// Consumer materializes domain events into stored notifications and FCM
// pushes. Push failures are logged and swallowed; the stored notification is
// the durable record.
type Consumer struct {
	repo     Repository
	guard    idempotencyGuard
	push     pusher
	decoders *registry.DecoderRegistry
	logg     *logger.Logger
}

// NewConsumer builds the notifications consumer. push may be nil to disable
// FCM delivery.
func NewConsumer(repo Repository, guard idempotencyGuard, push pusher, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderCreated, 1, decodeInto[payloads.OrderCreatedEvent])
	decoders.Register(enums.EventOrderAssigned, 1, decodeInto[payloads.OrderAssignedEvent])
	decoders.Register(enums.EventOrderStatusChanged, 1, decodeInto[payloads.OrderStatusChangedEvent])
	decoders.Register(enums.EventOrderNearDelivery, 1, decodeInto[payloads.OrderNearDeliveryEvent])
	decoders.Register(enums.EventOrderDelivered, 1, decodeInto[payloads.OrderDeliveredEvent])
	decoders.Register(enums.EventOrderCanceled, 1, decodeInto[payloads.OrderCanceledEvent])
	decoders.Register(enums.EventWalletDebited, 1, decodeInto[payloads.WalletMovementEvent])
	decoders.Register(enums.EventWalletCredited, 1, decodeInto[payloads.WalletMovementEvent])
	decoders.Register(enums.EventRiderStatusChanged, 1, decodeInto[payloads.RiderStatusChangedEvent])
	decoders.Register(enums.EventDeliveryOTPIssued, 1, decodeInto[payloads.DeliveryOTPIssuedEvent])

	return &Consumer{
		repo:     repo,
		guard:    guard,
		push:     push,
		decoders: decoders,
		logg:     logg,
	}, nil
}

func decodeInto[T any](payload json.RawMessage) (interface{}, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Handle processes one event exactly once per consumer. Unknown event types
// are acked without effect so old messages drain after deploys.
func (c *Consumer) Handle(ctx context.Context, event InboundEvent) error {
	if event.EventID == uuid.Nil {
		return fmt.Errorf("event id missing")
	}

	processed, err := c.guard.CheckAndMarkProcessed(ctx, ConsumerName, event.EventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if processed {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{
			"event_id":   event.EventID.String(),
			"event_type": string(event.EventType),
		}), "event already processed")
		return nil
	}

	if err := c.dispatch(ctx, event); err != nil {
		// Unmark so the message can be redelivered and retried.
		if delErr := c.guard.Delete(ctx, ConsumerName, event.EventID); delErr != nil {
			c.logg.Error(c.logg.WithField(ctx, "event_id", event.EventID.String()),
				"release idempotency mark failed", delErr)
		}
		return err
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, event InboundEvent) error {
	decoded, err := c.decoders.Decode(event.EventType, event.Version, event.Payload)
	if err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"event_type": string(event.EventType),
			"version":    event.Version,
		}), "no decoder for event, acking")
		return nil
	}

	switch payload := decoded.(type) {
	case *payloads.OrderCreatedEvent:
		return c.notify(ctx, notification{
			UserID:  payload.CustomerID,
			OrderID: &payload.OrderID,
			Type:    enums.NotificationTypeStatusUpdate,
			Title:   "Order placed",
			Message: fmt.Sprintf("Your order has been placed. Total %s.", payload.Total.StringFixed(2)),
		})
	case *payloads.OrderAssignedEvent:
		return c.notify(ctx, notification{
			UserID:  payload.CustomerID,
			OrderID: &payload.OrderID,
			Type:    enums.NotificationTypeOrderAccepted,
			Title:   "Rider assigned",
			Message: "A rider has accepted your order and is heading to the vendor.",
		})
	case *payloads.OrderStatusChangedEvent:
		return c.handleStatusChanged(ctx, payload)
	case *payloads.OrderNearDeliveryEvent:
		return c.notify(ctx, notification{
			UserID:  payload.CustomerID,
			OrderID: &payload.OrderID,
			Type:    enums.NotificationTypeNearDelivery,
			Title:   "Rider nearby",
			Message: "Your rider is less than a kilometer away. Get ready to receive your order.",
		})
	case *payloads.OrderDeliveredEvent:
		return c.notify(ctx, notification{
			UserID:  payload.CustomerID,
			OrderID: &payload.OrderID,
			Type:    enums.NotificationTypeStatusUpdate,
			Title:   "Order delivered",
			Message: "Your order has been delivered. Enjoy!",
		})
	case *payloads.OrderCanceledEvent:
		message := "Your order has been canceled."
		if payload.Reason != "" {
			message = fmt.Sprintf("Your order has been canceled: %s", payload.Reason)
		}
		return c.notify(ctx, notification{
			UserID:  payload.CustomerID,
			OrderID: &payload.OrderID,
			Type:    enums.NotificationTypeStatusUpdate,
			Title:   "Order canceled",
			Message: message,
		})
	case *payloads.WalletMovementEvent:
		return c.handleWalletMovement(ctx, event.EventType, payload)
	case *payloads.RiderStatusChangedEvent:
		return c.handleRiderStatus(ctx, payload)
	case *payloads.DeliveryOTPIssuedEvent:
		return c.notify(ctx, notification{
			UserID:  payload.CustomerID,
			OrderID: &payload.OrderID,
			Type:    enums.NotificationTypeSystem,
			Title:   "Delivery code",
			Message: fmt.Sprintf("Your delivery code is %s. Share it with your rider to confirm handover.", payload.Code),
		})
	default:
		return nil
	}
}

var statusMessages = map[enums.OrderStatus]string{
	enums.OrderStatusConfirmed:      "Your order has been confirmed.",
	enums.OrderStatusPreparing:      "The vendor has started preparing your order.",
	enums.OrderStatusReadyForPickup: "Your order is packed and waiting for the rider.",
	enums.OrderStatusPickedUp:       "Your rider has picked up your order.",
	enums.OrderStatusInTransit:      "Your order is on the way.",
}

// handleStatusChanged skips statuses that carry their own richer event.
func (c *Consumer) handleStatusChanged(ctx context.Context, payload *payloads.OrderStatusChangedEvent) error {
	message, ok := statusMessages[payload.ToStatus]
	if !ok {
		return nil
	}
	return c.notify(ctx, notification{
		UserID:  payload.CustomerID,
		OrderID: &payload.OrderID,
		Type:    enums.NotificationTypeStatusUpdate,
		Title:   "Order update",
		Message: message,
	})
}

func (c *Consumer) handleWalletMovement(ctx context.Context, eventType enums.OutboxEventType, payload *payloads.WalletMovementEvent) error {
	verb := "credited to"
	if eventType == enums.EventWalletDebited {
		verb = "debited from"
	}
	return c.notify(ctx, notification{
		UserID:  payload.UserID,
		OrderID: payload.OrderID,
		Type:    enums.NotificationTypeWalletActivity,
		Title:   "Wallet activity",
		Message: fmt.Sprintf("%s was %s your wallet (%s).", payload.Amount.StringFixed(2), verb, payload.Reference),
	})
}

func (c *Consumer) handleRiderStatus(ctx context.Context, payload *payloads.RiderStatusChangedEvent) error {
	var message string
	switch payload.Status {
	case enums.RiderStatusPendingVerification:
		message = "Your documents were received and are under review."
	case enums.RiderStatusActive:
		message = "Your rider profile has been verified. You can now go online."
	default:
		return nil
	}
	return c.notify(ctx, notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeSystem,
		Title:   "Rider verification",
		Message: message,
	})
}

type notification struct {
	UserID  uuid.UUID
	OrderID *uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
}

func (c *Consumer) notify(ctx context.Context, n notification) error {
	row := &models.Notification{
		ID:      uuid.New(),
		UserID:  n.UserID,
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
		OrderID: n.OrderID,
	}
	if err := c.repo.CreateNotification(ctx, row); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	c.sendPush(ctx, n)
	return nil
}

func (c *Consumer) sendPush(ctx context.Context, n notification) {
	if c.push == nil {
		return
	}

	token, err := c.repo.FindUserFCMToken(ctx, n.UserID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
				"user_id": n.UserID.String(),
				"error":   err.Error(),
			}), "fcm token lookup failed")
		}
		return
	}
	if token == nil || *token == "" {
		return
	}

	data := map[string]string{"type": string(n.Type)}
	if n.OrderID != nil {
		data["order_id"] = n.OrderID.String()
	}
	if _, err := c.push.Send(ctx, fcm.Message{
		Token: *token,
		Title: n.Title,
		Body:  n.Message,
		Data:  data,
	}); err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"user_id": n.UserID.String(),
			"error":   err.Error(),
		}), "push delivery failed")
	}
}
