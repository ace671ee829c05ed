package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/internal/notifications"
	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
)

type pinger interface {
	Ping(context.Context) error
}

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type eventHandler interface {
	Handle(ctx context.Context, event notifications.InboundEvent) error
}

type ServiceParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          pinger
	Redis       pinger
	PubSub      pinger
	Subscribers []subscriber
	Handler     eventHandler
}

// Service fans events from every configured subscription into the
// notifications consumer.
type Service struct {
	cfg         *config.Config
	logg        *logger.Logger
	db          pinger
	redis       pinger
	pubsub      pinger
	subscribers []subscriber
	handler     eventHandler
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if len(params.Subscribers) == 0 {
		return nil, errors.New("at least one subscriber is required")
	}
	if params.Handler == nil {
		return nil, errors.New("event handler is required")
	}

	return &Service{
		cfg:         params.Config,
		logg:        params.Logger,
		db:          params.DB,
		redis:       params.Redis,
		pubsub:      params.PubSub,
		subscribers: params.Subscribers,
		handler:     params.Handler,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, len(s.subscribers))
	for _, sub := range s.subscribers {
		sub := sub
		go func() {
			errCh <- sub.Receive(ctx, s.receive)
		}()
	}

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "subscriber stopped unexpectedly", err)
			return err
		}
		return err
	}
}

func (s *Service) receive(ctx context.Context, msg *gcppubsub.Message) {
	result := s.process(ctx, msg)
	if result.nack {
		msg.Nack()
		return
	}
	msg.Ack()
}

type processResult struct {
	ack  bool
	nack bool
}

// process converts a Pub/Sub message into an inbound event. Malformed
// messages are acked so poison payloads do not wedge the subscription.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		s.logg.Warn(logCtx, "unknown event type, acking")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		s.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	event := notifications.InboundEvent{
		EventID:   eventID,
		EventType: eventType,
		Version:   envelope.Version,
		Payload:   envelope.Data,
	}
	if err := s.handler.Handle(ctx, event); err != nil {
		s.logg.Error(s.logg.WithField(logCtx, "event_id", eventID.String()), "event handling failed", err)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}
