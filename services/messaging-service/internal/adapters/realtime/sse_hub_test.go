package realtime

import (
	"context"
	"strings"
	"testing"
	"time"

	"marketplace/pkg/logger"
	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case frame := <-ch:
		return string(frame)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return ""
	}
}

func TestSSEHub_DeliversToEveryTab(t *testing.T) {
	defer goleak.VerifyNone(t)

	metrics := NewMetrics(nil)
	hub := NewSSEHub(logger.NewNoop(), metrics)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	alice, bob, stranger := uuid.New(), uuid.New(), uuid.New()
	tab1 := hub.AddClient(alice)
	tab2 := hub.AddClient(alice)
	bobTab := hub.AddClient(bob)
	strangerTab := hub.AddClient(stranger)
	assert.Equal(t, 2, hub.Connections(alice))

	hub.Broadcast(context.Background(), domain.RealtimeEvent{
		Type:       domain.EventMessageCreated,
		Recipients: []uuid.UUID{alice, bob},
		Payload:    map[string]string{"body": "hi"},
	})

	for _, ch := range []chan []byte{tab1, tab2, bobTab} {
		frame := receive(t, ch)
		assert.True(t, strings.HasPrefix(frame, "event: message.created\n"))
		assert.Contains(t, frame, `data: {"body":"hi"}`)
		assert.True(t, strings.HasSuffix(frame, "\n\n"))
	}
	select {
	case <-strangerTab:
		t.Fatal("event leaked to a non-recipient")
	default:
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.delivered.WithLabelValues(sinkSSE)))

	cancel()
	<-done
	_, open := <-tab1
	assert.False(t, open, "client channels are closed on shutdown")
}

func TestSSEHub_FullClientBufferDrops(t *testing.T) {
	metrics := NewMetrics(nil)
	hub := NewSSEHub(logger.NewNoop(), metrics)
	userID := uuid.New()
	ch := hub.AddClient(userID)

	event := domain.RealtimeEvent{Type: domain.EventNotificationCreated, Recipients: []uuid.UUID{userID}, Payload: struct{}{}}
	for i := 0; i < clientBufferSize+5; i++ {
		hub.dispatch(context.Background(), event)
	}

	assert.Len(t, ch, clientBufferSize)
	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.dropped.WithLabelValues(sinkSSE)))
}

func TestSSEHub_RemoveClient(t *testing.T) {
	hub := NewSSEHub(logger.NewNoop(), NewMetrics(nil))
	userID := uuid.New()
	first := hub.AddClient(userID)
	second := hub.AddClient(userID)

	hub.RemoveClient(userID, first)
	require.Equal(t, 1, hub.Connections(userID))
	hub.RemoveClient(userID, second)
	assert.Equal(t, 0, hub.Connections(userID))
	hub.RemoveClient(userID, second)
}

func TestSSEHub_BroadcastNeverBlocks(t *testing.T) {
	metrics := NewMetrics(nil)
	hub := NewSSEHub(logger.NewNoop(), metrics)
	event := domain.RealtimeEvent{Type: domain.EventConversationRead}

	for i := 0; i < hubQueueSize+1; i++ {
		hub.Broadcast(context.Background(), event)
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.dropped.WithLabelValues(sinkSSE)))
}

type recordingSink struct {
	events []domain.RealtimeEvent
}

func (r *recordingSink) Broadcast(_ context.Context, e domain.RealtimeEvent) {
	r.events = append(r.events, e)
}

func TestFanoutBroadcaster(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	fanout := NewFanoutBroadcaster(a, nil, b)

	fanout.Broadcast(context.Background(), domain.RealtimeEvent{Type: domain.EventConversationClosed})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}
