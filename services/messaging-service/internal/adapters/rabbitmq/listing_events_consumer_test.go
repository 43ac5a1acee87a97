package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/contracts"
	"marketplace/pkg/logger"
	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inquiryUCStub struct {
	got     []domain.InquiryCreated
	traceID string
	err     error
}

func (s *inquiryUCStub) Execute(ctx context.Context, e domain.InquiryCreated) error {
	s.got = append(s.got, e)
	s.traceID = contextkeys.TraceIDFromContext(ctx)
	return s.err
}

type archiveUCStub struct {
	got []domain.ListingArchived
	err error
}

func (s *archiveUCStub) Execute(_ context.Context, e domain.ListingArchived) error {
	s.got = append(s.got, e)
	return s.err
}

func newTestAdapter() (*ListingEventsConsumerAdapter, *inquiryUCStub, *archiveUCStub) {
	inq, arc := &inquiryUCStub{}, &archiveUCStub{}
	return &ListingEventsConsumerAdapter{inquiryUC: inq, archiveUC: arc, logger: logger.NewNoop()}, inq, arc
}

func inquiryBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(domain.InquiryCreated{
		InquiryID:    uuid.New(),
		ListingID:    uuid.New(),
		ListingTitle: "Диван",
		SellerID:     uuid.New(),
		BuyerID:      uuid.New(),
		Message:      "Еще продается?",
		CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return body
}

func archivedBody(t *testing.T, reason string) []byte {
	t.Helper()
	body, err := json.Marshal(domain.ListingArchived{
		ListingID:  uuid.New(),
		SellerID:   uuid.New(),
		Title:      "Диван",
		Reason:     reason,
		ArchivedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return body
}

func TestMessageHandler_InquiryByHeader(t *testing.T) {
	adapter, inq, arc := newTestAdapter()

	err := adapter.messageHandler(amqp.Delivery{
		RoutingKey: contracts.RoutingKeyInquiryCreated,
		Headers: amqp.Table{
			contracts.HeaderEventType:    contracts.EventInquiryCreated,
			contracts.HeaderEventVersion: contracts.EventVersion,
			contracts.HeaderTraceID:      "trace-1",
		},
		Body: inquiryBody(t),
	})

	require.NoError(t, err)
	require.Len(t, inq.got, 1)
	assert.Equal(t, "Еще продается?", inq.got[0].Message)
	assert.Equal(t, "trace-1", inq.traceID)
	assert.Empty(t, arc.got)
}

func TestMessageHandler_ArchivedByRoutingKey(t *testing.T) {
	adapter, inq, arc := newTestAdapter()

	err := adapter.messageHandler(amqp.Delivery{
		RoutingKey: contracts.RoutingKeyListingArchived,
		Body:       archivedBody(t, "expired"),
	})

	require.NoError(t, err)
	require.Len(t, arc.got, 1)
	assert.Equal(t, "expired", arc.got[0].Reason)
	assert.Empty(t, inq.got)
}

func TestMessageHandler_InvalidPayloadIsDropped(t *testing.T) {
	adapter, _, arc := newTestAdapter()

	err := adapter.messageHandler(amqp.Delivery{
		RoutingKey: contracts.RoutingKeyListingArchived,
		Body:       archivedBody(t, "unknown-reason"),
	})
	assert.NoError(t, err)

	err = adapter.messageHandler(amqp.Delivery{RoutingKey: contracts.RoutingKeyInquiryCreated, Body: []byte("{not json")})
	assert.NoError(t, err)

	err = adapter.messageHandler(amqp.Delivery{RoutingKey: "something.else", Body: []byte(`{}`)})
	assert.NoError(t, err)
	assert.Empty(t, arc.got)
}

func TestMessageHandler_UseCaseErrorIsRetried(t *testing.T) {
	adapter, inq, _ := newTestAdapter()
	adapter.consumed = NewConsumedEventsCounter(nil)
	inq.err = errors.New("db is down")

	err := adapter.messageHandler(amqp.Delivery{
		RoutingKey: contracts.RoutingKeyInquiryCreated,
		Body:       inquiryBody(t),
	})
	assert.ErrorIs(t, err, inq.err)
	assert.Equal(t, float64(1), testutil.ToFloat64(adapter.consumed.WithLabelValues(contracts.EventInquiryCreated, outcomeRetry)))

	_ = adapter.messageHandler(amqp.Delivery{RoutingKey: "unknown.key", Body: []byte(`{}`)})
	assert.Equal(t, float64(1), testutil.ToFloat64(adapter.consumed.WithLabelValues("unknown", outcomeRejected)))
}

func TestEventTypeResolution(t *testing.T) {
	assert.Equal(t, contracts.EventListingArchived, eventType(amqp.Delivery{RoutingKey: contracts.RoutingKeyListingArchived}))
	assert.Equal(t, "Custom", eventType(amqp.Delivery{
		RoutingKey: contracts.RoutingKeyListingArchived,
		Headers:    amqp.Table{contracts.HeaderEventType: "Custom"},
	}))
	assert.Equal(t, "", eventType(amqp.Delivery{RoutingKey: "listing.published"}))
	assert.Equal(t, contracts.EventVersion, eventVersion(amqp.Delivery{}))
}
