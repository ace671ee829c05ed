package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/internal/notifications"
	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
)

type stubHandler struct {
	events []notifications.InboundEvent
	err    error
}

func (s *stubHandler) Handle(_ context.Context, event notifications.InboundEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSubscriber struct{}

func (stubSubscriber) Receive(ctx context.Context, _ func(context.Context, *gcppubsub.Message)) error {
	<-ctx.Done()
	return ctx.Err()
}

func newWorkerService(t *testing.T, handler eventHandler) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
	service, err := NewService(ServiceParams{
		Config:      &config.Config{},
		Logger:      logg,
		DB:          stubPinger{},
		Redis:       stubPinger{},
		PubSub:      stubPinger{},
		Subscribers: []subscriber{stubSubscriber{}},
		Handler:     handler,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func envelopeMessage(t *testing.T, eventType string, eventID string) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"orderId":"` + uuid.NewString() + `"}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &gcppubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": eventType},
	}
}

func TestProcessDeliversDecodedEvent(t *testing.T) {
	handler := &stubHandler{}
	service := newWorkerService(t, handler)
	eventID := uuid.New()

	result := service.process(context.Background(), envelopeMessage(t, "order_created", eventID.String()))

	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(handler.events) != 1 {
		t.Fatalf("expected handler invoked once, got %d", len(handler.events))
	}
	event := handler.events[0]
	if event.EventID != eventID {
		t.Fatalf("event id mismatch: %s", event.EventID)
	}
	if event.EventType != enums.EventOrderCreated {
		t.Fatalf("event type mismatch: %s", event.EventType)
	}
	if event.Version != 1 {
		t.Fatalf("version mismatch: %d", event.Version)
	}
}

func TestProcessAcksUnknownEventType(t *testing.T) {
	handler := &stubHandler{}
	service := newWorkerService(t, handler)

	result := service.process(context.Background(), envelopeMessage(t, "mystery_event", uuid.NewString()))

	if !result.ack {
		t.Fatalf("expected ack for unknown event type")
	}
	if len(handler.events) != 0 {
		t.Fatalf("handler should not run for unknown event type")
	}
}

func TestProcessAcksMalformedEnvelope(t *testing.T) {
	handler := &stubHandler{}
	service := newWorkerService(t, handler)
	msg := &gcppubsub.Message{
		Data:       []byte("not json"),
		Attributes: map[string]string{"event_type": "order_created"},
	}

	result := service.process(context.Background(), msg)

	if !result.ack {
		t.Fatalf("expected ack for malformed envelope")
	}
	if len(handler.events) != 0 {
		t.Fatalf("handler should not run for malformed envelope")
	}
}

func TestProcessNacksOnHandlerError(t *testing.T) {
	handler := &stubHandler{err: errors.New("db down")}
	service := newWorkerService(t, handler)

	result := service.process(context.Background(), envelopeMessage(t, "order_created", uuid.NewString()))

	if !result.nack {
		t.Fatalf("expected nack when handler fails")
	}
}
