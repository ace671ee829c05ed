package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/fcm"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox/payloads"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

type consumerRepo struct {
	stored    []*models.Notification
	tokens    map[uuid.UUID]string
	createErr error
}

func newConsumerRepo() *consumerRepo {
	return &consumerRepo{tokens: map[uuid.UUID]string{}}
}

func (r *consumerRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *consumerRepo) CreateNotification(ctx context.Context, row *models.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.stored = append(r.stored, row)
	return nil
}

func (r *consumerRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, params pagination.Params) ([]models.Notification, error) {
	return nil, nil
}

func (r *consumerRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *consumerRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (bool, error) {
	return false, nil
}

func (r *consumerRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *consumerRepo) FindUserFCMToken(ctx context.Context, userID uuid.UUID) (*string, error) {
	if token, ok := r.tokens[userID]; ok {
		return &token, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *consumerRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type memoryGuard struct {
	processed map[uuid.UUID]bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{processed: map[uuid.UUID]bool{}}
}

func (g *memoryGuard) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if g.processed[eventID] {
		return true, nil
	}
	g.processed[eventID] = true
	return false, nil
}

func (g *memoryGuard) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	delete(g.processed, eventID)
	return nil
}

type capturingPusher struct {
	sent []fcm.Message
	err  error
}

func (p *capturingPusher) Send(ctx context.Context, msg fcm.Message) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.sent = append(p.sent, msg)
	return "projects/test/messages/1", nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func newTestConsumer(t *testing.T, repo Repository, guard idempotencyGuard, push pusher) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(repo, guard, push, testLogger())
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}
	return consumer
}

func TestConsumerStoresNotificationAndPushes(t *testing.T) {
	repo := newConsumerRepo()
	push := &capturingPusher{}
	consumer := newTestConsumer(t, repo, newMemoryGuard(), push)

	customerID := uuid.New()
	orderID := uuid.New()
	repo.tokens[customerID] = "token-abc"

	err := consumer.Handle(context.Background(), InboundEvent{
		EventID:   uuid.New(),
		EventType: enums.EventOrderNearDelivery,
		Version:   1,
		Payload: mustJSON(t, payloads.OrderNearDeliveryEvent{
			OrderID:    orderID,
			CustomerID: customerID,
			RiderID:    uuid.New(),
			DistanceKM: 0.3,
		}),
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(repo.stored) != 1 {
		t.Fatalf("stored %d notifications, want 1", len(repo.stored))
	}
	stored := repo.stored[0]
	if stored.UserID != customerID || stored.Type != enums.NotificationTypeNearDelivery {
		t.Fatalf("stored = %+v", stored)
	}
	if stored.OrderID == nil || *stored.OrderID != orderID {
		t.Fatal("expected order id on notification")
	}

	if len(push.sent) != 1 {
		t.Fatalf("pushed %d messages, want 1", len(push.sent))
	}
	if push.sent[0].Token != "token-abc" {
		t.Fatalf("push token = %q", push.sent[0].Token)
	}
	if push.sent[0].Data["order_id"] != orderID.String() {
		t.Fatalf("push data = %v", push.sent[0].Data)
	}
}

func TestConsumerIsIdempotentPerEvent(t *testing.T) {
	repo := newConsumerRepo()
	consumer := newTestConsumer(t, repo, newMemoryGuard(), nil)

	event := InboundEvent{
		EventID:   uuid.New(),
		EventType: enums.EventOrderDelivered,
		Version:   1,
		Payload: mustJSON(t, payloads.OrderDeliveredEvent{
			OrderID:    uuid.New(),
			CustomerID: uuid.New(),
			VendorID:   uuid.New(),
			RiderID:    uuid.New(),
		}),
	}

	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("first Handle() error = %v", err)
	}
	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("second Handle() error = %v", err)
	}
	if len(repo.stored) != 1 {
		t.Fatalf("stored %d notifications, want 1", len(repo.stored))
	}
}

func TestConsumerReleasesMarkOnFailure(t *testing.T) {
	repo := newConsumerRepo()
	repo.createErr = errors.New("db down")
	guard := newMemoryGuard()
	consumer := newTestConsumer(t, repo, guard, nil)

	event := InboundEvent{
		EventID:   uuid.New(),
		EventType: enums.EventOrderCanceled,
		Version:   1,
		Payload: mustJSON(t, payloads.OrderCanceledEvent{
			OrderID:    uuid.New(),
			CustomerID: uuid.New(),
			VendorID:   uuid.New(),
			Reason:     "vendor closed",
		}),
	}

	if err := consumer.Handle(context.Background(), event); err == nil {
		t.Fatal("expected error when storage fails")
	}
	if guard.processed[event.EventID] {
		t.Fatal("expected idempotency mark to be released for retry")
	}

	// Retry succeeds once the dependency recovers.
	repo.createErr = nil
	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("retry Handle() error = %v", err)
	}
	if len(repo.stored) != 1 {
		t.Fatalf("stored %d notifications, want 1", len(repo.stored))
	}
}

func TestConsumerAcksUnknownEventType(t *testing.T) {
	repo := newConsumerRepo()
	consumer := newTestConsumer(t, repo, newMemoryGuard(), nil)

	err := consumer.Handle(context.Background(), InboundEvent{
		EventID:   uuid.New(),
		EventType: enums.OutboxEventType("legacy_event"),
		Version:   3,
		Payload:   json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(repo.stored) != 0 {
		t.Fatalf("stored %d notifications, want 0", len(repo.stored))
	}
}

func TestConsumerSkipsStatusesWithDedicatedEvents(t *testing.T) {
	repo := newConsumerRepo()
	consumer := newTestConsumer(t, repo, newMemoryGuard(), nil)

	for _, status := range []enums.OrderStatus{
		enums.OrderStatusNearDelivery,
		enums.OrderStatusDelivered,
		enums.OrderStatusCanceled,
	} {
		err := consumer.Handle(context.Background(), InboundEvent{
			EventID:   uuid.New(),
			EventType: enums.EventOrderStatusChanged,
			Version:   1,
			Payload: mustJSON(t, payloads.OrderStatusChangedEvent{
				OrderID:    uuid.New(),
				CustomerID: uuid.New(),
				VendorID:   uuid.New(),
				FromStatus: enums.OrderStatusInTransit,
				ToStatus:   status,
			}),
		})
		if err != nil {
			t.Fatalf("Handle(%s) error = %v", status, err)
		}
	}
	if len(repo.stored) != 0 {
		t.Fatalf("stored %d notifications, want 0", len(repo.stored))
	}
}

func TestConsumerDeliveryCodeMessageCarriesCode(t *testing.T) {
	repo := newConsumerRepo()
	consumer := newTestConsumer(t, repo, newMemoryGuard(), nil)

	customerID := uuid.New()
	err := consumer.Handle(context.Background(), InboundEvent{
		EventID:   uuid.New(),
		EventType: enums.EventDeliveryOTPIssued,
		Version:   1,
		Payload: mustJSON(t, payloads.DeliveryOTPIssuedEvent{
			OrderID:    uuid.New(),
			CustomerID: customerID,
			Code:       "04217",
		}),
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(repo.stored) != 1 {
		t.Fatalf("stored %d notifications, want 1", len(repo.stored))
	}
	if repo.stored[0].UserID != customerID {
		t.Fatal("delivery code must go to the customer")
	}
	if want := "04217"; !strings.Contains(repo.stored[0].Message, want) {
		t.Fatalf("message %q does not carry the code", repo.stored[0].Message)
	}
}

func TestConsumerWalletMovementVerbMatchesDirection(t *testing.T) {
	repo := newConsumerRepo()
	consumer := newTestConsumer(t, repo, newMemoryGuard(), nil)

	userID := uuid.New()
	base := payloads.WalletMovementEvent{
		TransactionID: uuid.New(),
		UserID:        userID,
		Amount:        decimal.RequireFromString("1500.00"),
		Reference:     "order-x-debit",
	}

	if err := consumer.Handle(context.Background(), InboundEvent{
		EventID:   uuid.New(),
		EventType: enums.EventWalletDebited,
		Version:   1,
		Payload:   mustJSON(t, base),
	}); err != nil {
		t.Fatalf("Handle(debit) error = %v", err)
	}
	if !strings.Contains(repo.stored[0].Message, "debited from") {
		t.Fatalf("debit message = %q", repo.stored[0].Message)
	}

	if err := consumer.Handle(context.Background(), InboundEvent{
		EventID:   uuid.New(),
		EventType: enums.EventWalletCredited,
		Version:   1,
		Payload:   mustJSON(t, base),
	}); err != nil {
		t.Fatalf("Handle(credit) error = %v", err)
	}
	if !strings.Contains(repo.stored[1].Message, "credited to") {
		t.Fatalf("credit message = %q", repo.stored[1].Message)
	}
}

