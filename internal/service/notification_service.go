package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/clinic-service/internal/events"
)

// EventSink receives events forwarded out of the process.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

// NotificationService logs domain events and forwards them to an external sink.
type NotificationService struct {
	dispatcher events.Dispatcher
	sink       EventSink
	logger     *zap.Logger
}

// NewNotificationService creates the service. sink may be nil.
func NewNotificationService(dispatcher events.Dispatcher, sink EventSink, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sink:       sink,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("entity_id", event.EntityID),
		zap.String("actor", event.Actor.Email),
		zap.Any("payload", event.Payload))

	if n.sink == nil {
		return nil
	}
	if err := n.sink.Publish(ctx, event); err != nil {
		n.logger.Warn("forward event failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}
