package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/contracts"
	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys []string
	msgs []amqp.Publishing
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestPublishListingPublished(t *testing.T) {
	producer := &recordingPublisher{}
	adapter, err := NewListingEventPublisherAdapter(producer)
	require.NoError(t, err)

	ctx := contextkeys.ContextWithTraceID(context.Background(), "trace-1")
	event := domain.ListingPublishedEvent{
		ListingID:   uuid.New(),
		SellerID:    uuid.New(),
		Title:       "Audi A4",
		Category:    domain.CategoryCar,
		Price:       12000,
		Currency:    "USD",
		City:        "Minsk",
		PublishedAt: time.Now().UTC(),
	}
	require.NoError(t, adapter.PublishListingPublished(ctx, event))

	require.Len(t, producer.msgs, 1)
	assert.Equal(t, contracts.RoutingKeyListingPublished, producer.keys[0])
	msg := producer.msgs[0]
	assert.Equal(t, "ListingPublishedEvent", msg.Headers["event-type"])
	assert.Equal(t, "1.0.0", msg.Headers["event-version"])
	assert.Equal(t, "trace-1", msg.Headers["x-trace-id"])
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var decoded domain.ListingPublishedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, event.ListingID, decoded.ListingID)
}

func TestPublishRejectsEventOutsideSchema(t *testing.T) {
	producer := &recordingPublisher{}
	adapter, _ := NewListingEventPublisherAdapter(producer)

	err := adapter.PublishListingArchived(context.Background(), domain.ListingArchivedEvent{
		ListingID:  uuid.New(),
		SellerID:   uuid.New(),
		Title:      "x",
		Reason:     "sold",
		ArchivedAt: time.Now(),
	})
	assert.Error(t, err)
	assert.Empty(t, producer.msgs)
}

func TestPublishWrapsProducerError(t *testing.T) {
	producer := &recordingPublisher{err: errors.New("channel closed")}
	adapter, _ := NewListingEventPublisherAdapter(producer)

	err := adapter.PublishInquiryCreated(context.Background(), domain.InquiryCreatedEvent{
		InquiryID:    uuid.New(),
		ListingID:    uuid.New(),
		ListingTitle: "Дом",
		SellerID:     uuid.New(),
		BuyerID:      uuid.New(),
		Message:      "Здравствуйте",
		CreatedAt:    time.Now(),
	})
	assert.ErrorContains(t, err, "channel closed")
}
