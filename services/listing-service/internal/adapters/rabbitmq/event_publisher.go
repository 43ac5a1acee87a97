package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/contracts"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessagePublisher - то, что адаптеру нужно от rabbitmq_producer.Publisher.
type MessagePublisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// ListingEventPublisherAdapter публикует события объявлений в topic-обменник.
type ListingEventPublisherAdapter struct {
	producer MessagePublisher
}

var _ port.ListingEventPublisherPort = (*ListingEventPublisherAdapter)(nil)

func NewListingEventPublisherAdapter(producer MessagePublisher) (*ListingEventPublisherAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	return &ListingEventPublisherAdapter{producer: producer}, nil
}

func (a *ListingEventPublisherAdapter) PublishListingPublished(ctx context.Context, event domain.ListingPublishedEvent) error {
	return a.publish(ctx, contracts.RoutingKeyListingPublished, contracts.EventListingPublished, event)
}

func (a *ListingEventPublisherAdapter) PublishListingArchived(ctx context.Context, event domain.ListingArchivedEvent) error {
	return a.publish(ctx, contracts.RoutingKeyListingArchived, contracts.EventListingArchived, event)
}

func (a *ListingEventPublisherAdapter) PublishInquiryCreated(ctx context.Context, event domain.InquiryCreatedEvent) error {
	return a.publish(ctx, contracts.RoutingKeyInquiryCreated, contracts.EventInquiryCreated, event)
}

func (a *ListingEventPublisherAdapter) publish(ctx context.Context, routingKey, eventType string, event interface{}) error {
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "ListingEventPublisherAdapter",
		"routing_key": routingKey,
		"event_type":  eventType,
	})

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to marshal %s: %w", eventType, err)
	}

	// Схема проверяется и на стороне отправителя: битое событие не уходит в шину.
	if err := contracts.ValidateEvent(eventType, contracts.EventVersion, body); err != nil {
		adapterLogger.Error("Event does not match its schema", err, nil)
		return fmt.Errorf("rabbitmq adapter: invalid %s: %w", eventType, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			contracts.HeaderEventType:    eventType,
			contracts.HeaderEventVersion: contracts.EventVersion,
		},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers[contracts.HeaderTraceID] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.producer.Publish(publishCtx, routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish event", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish %s: %w", eventType, err)
	}

	adapterLogger.Info("Event published", nil)
	return nil
}
