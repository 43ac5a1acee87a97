package rabbitmq

import (
	"context"
	"encoding/json"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/contracts"
	"marketplace/pkg/rabbitmq/rabbitmq_common"
	"marketplace/pkg/rabbitmq/rabbitmq_consumer"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"
	"marketplace/services/messaging-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ListingEventsConsumerAdapter слушает события listing-service:
// новые запросы по объявлениям и снятие объявлений с публикации.
type ListingEventsConsumerAdapter struct {
	consumer  rabbitmq_consumer.Consumer
	inquiryUC usecases_port.HandleInquiryCreatedUseCasePort
	archiveUC usecases_port.HandleListingArchivedUseCasePort
	logger    port.LoggerPort
	consumed  *prometheus.CounterVec
}

const (
	outcomeProcessed = "processed"
	outcomeRejected  = "rejected"
	outcomeRetry     = "retry"
)

// NewConsumedEventsCounter - счетчик обработанных событий по типу и исходу.
func NewConsumedEventsCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "messaging_service",
		Name:      "consumed_events_total",
		Help:      "Bus events handled by the consumer, by type and outcome.",
	}, []string{"event_type", "outcome"})
	if reg != nil {
		reg.MustRegister(c)
	}
	return c
}

func NewListingEventsConsumerAdapter(
	cfg rabbitmq_consumer.ConsumerConfig,
	inquiryUC usecases_port.HandleInquiryCreatedUseCasePort,
	archiveUC usecases_port.HandleListingArchivedUseCasePort,
	logger port.LoggerPort,
	consumed *prometheus.CounterVec,
	connManager *rabbitmq_common.ConnectionManager,
) (*ListingEventsConsumerAdapter, error) {
	adapter := &ListingEventsConsumerAdapter{inquiryUC: inquiryUC, archiveUC: archiveUC, logger: logger, consumed: consumed}

	pkgLogger := logger.WithFields(port.Fields{"component": "rabbitmq_distributing_consumer", "consumer_tag": cfg.ConsumerTag})
	cfg.Logger = NewPkgLoggerBridge(pkgLogger)

	consumer, err := rabbitmq_consumer.NewDistributingConsumer(cfg, adapter.messageHandler, connManager)
	if err != nil {
		return nil, err
	}
	adapter.consumer = consumer
	return adapter, nil
}

// eventType берет тип из заголовка, а для старых издателей выводит его из ключа маршрутизации.
func eventType(d amqp.Delivery) string {
	if t, ok := d.Headers[contracts.HeaderEventType].(string); ok && t != "" {
		return t
	}
	switch d.RoutingKey {
	case contracts.RoutingKeyInquiryCreated:
		return contracts.EventInquiryCreated
	case contracts.RoutingKeyListingArchived:
		return contracts.EventListingArchived
	}
	return ""
}

func eventVersion(d amqp.Delivery) string {
	if v, ok := d.Headers[contracts.HeaderEventVersion].(string); ok && v != "" {
		return v
	}
	return contracts.EventVersion
}

func (a *ListingEventsConsumerAdapter) messageHandler(d amqp.Delivery) error {
	typ := eventType(d)
	outcome, err := a.handle(d, typ)
	if a.consumed != nil {
		if typ == "" {
			typ = "unknown"
		}
		a.consumed.WithLabelValues(typ, outcome).Inc()
	}
	return err
}

// handle возвращает nil для сообщений, которые бессмысленно повторять,
// и ошибку, если сбой временный и сообщение надо отправить в ретрай.
func (a *ListingEventsConsumerAdapter) handle(d amqp.Delivery, typ string) (string, error) {
	traceID, ok := d.Headers[contracts.HeaderTraceID].(string)
	if !ok || traceID == "" {
		traceID = uuid.New().String()
	}

	msgLogger := a.logger.WithFields(port.Fields{
		"trace_id":     traceID,
		"delivery_tag": d.DeliveryTag,
		"event_type":   typ,
		"routing_key":  d.RoutingKey,
	})

	ctx := contextkeys.ContextWithTraceID(context.Background(), traceID)
	ctx = contextkeys.ContextWithLogger(ctx, msgLogger)

	if err := contracts.ValidateEvent(typ, eventVersion(d), d.Body); err != nil {
		msgLogger.Error("Event failed contract validation, rejecting message.", err, nil)
		return outcomeRejected, nil
	}

	switch typ {
	case contracts.EventInquiryCreated:
		var event domain.InquiryCreated
		if err := json.Unmarshal(d.Body, &event); err != nil {
			msgLogger.Error("Failed to unmarshal inquiry event, rejecting message.", err, nil)
			return outcomeRejected, nil
		}
		msgLogger.Info("Processing inquiry event.", port.Fields{"inquiry_id": event.InquiryID, "listing_id": event.ListingID})
		if err := a.inquiryUC.Execute(ctx, event); err != nil {
			msgLogger.Error("Failed to process inquiry event, retrying.", err, nil)
			return outcomeRetry, err
		}

	case contracts.EventListingArchived:
		var event domain.ListingArchived
		if err := json.Unmarshal(d.Body, &event); err != nil {
			msgLogger.Error("Failed to unmarshal archive event, rejecting message.", err, nil)
			return outcomeRejected, nil
		}
		msgLogger.Info("Processing listing archived event.", port.Fields{"listing_id": event.ListingID, "reason": event.Reason})
		if err := a.archiveUC.Execute(ctx, event); err != nil {
			msgLogger.Error("Failed to process archive event, retrying.", err, nil)
			return outcomeRetry, err
		}

	default:
		msgLogger.Warn("Unsupported event type, skipping.", nil)
		return outcomeRejected, nil
	}

	msgLogger.Info("Successfully processed event.", nil)
	return outcomeProcessed, nil
}

func (a *ListingEventsConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

func (a *ListingEventsConsumerAdapter) Close() error { return a.consumer.Close() }
