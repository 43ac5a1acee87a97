package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
)

const (
	hubQueueSize     = 256
	clientBufferSize = 100
)

type eventWithContext struct {
	ctx   context.Context
	event domain.RealtimeEvent
}

// SSEHub раздает события открытым SSE-соединениям.
// Один пользователь может держать несколько вкладок, у каждой свой канал.
type SSEHub struct {
	clients map[uuid.UUID][]chan []byte
	mu      sync.RWMutex

	events  chan eventWithContext
	logger  port.LoggerPort
	metrics *Metrics
}

func NewSSEHub(baseLogger port.LoggerPort, metrics *Metrics) *SSEHub {
	return &SSEHub{
		clients: make(map[uuid.UUID][]chan []byte),
		events:  make(chan eventWithContext, hubQueueSize),
		logger:  baseLogger.WithFields(port.Fields{"component": "SSEHub"}),
		metrics: metrics,
	}
}

// Run - диспетчер событий. После отмены ctx все клиентские каналы закрываются.
func (h *SSEHub) Run(ctx context.Context) {
	h.logger.Debug("SSE dispatcher started.", nil)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Debug("SSE dispatcher stopped.", nil)
			return
		case pkg := <-h.events:
			h.dispatch(pkg.ctx, pkg.event)
		}
	}
}

// Broadcast кладет событие в очередь диспетчера и никогда не блокируется.
func (h *SSEHub) Broadcast(ctx context.Context, event domain.RealtimeEvent) {
	select {
	case h.events <- eventWithContext{ctx: ctx, event: event}:
	default:
		h.metrics.drop(sinkSSE)
		contextkeys.LoggerFromContext(ctx).Warn("SSE queue is full, event dropped", port.Fields{"event_type": event.Type})
	}
}

func (h *SSEHub) dispatch(ctx context.Context, event domain.RealtimeEvent) {
	eventLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "SSEHub.dispatcher",
		"event_type": event.Type,
	})

	data, err := json.Marshal(event.Payload)
	if err != nil {
		eventLogger.Error("Failed to marshal event", err, nil)
		return
	}
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, data))

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range event.Recipients {
		channels, found := h.clients[userID]
		if !found {
			continue
		}
		for _, ch := range channels {
			select {
			case ch <- frame:
				h.metrics.delivery(sinkSSE)
			default:
				h.metrics.drop(sinkSSE)
				eventLogger.Warn("Client channel is full, skipping.", port.Fields{"user_id": userID})
			}
		}
	}
}

// AddClient регистрирует новое SSE-соединение пользователя.
func (h *SSEHub) AddClient(userID uuid.UUID) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan []byte, clientBufferSize)
	h.clients[userID] = append(h.clients[userID], ch)

	h.logger.Info("Client connected for user", port.Fields{
		"user_id":                    userID,
		"total_connections_for_user": len(h.clients[userID]),
	})
	return ch
}

// RemoveClient удаляет канал при отключении клиента.
func (h *SSEHub) RemoveClient(userID uuid.UUID, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channels, found := h.clients[userID]
	if !found {
		return
	}
	remaining := make([]chan []byte, 0, len(channels))
	for _, c := range channels {
		if c != ch {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		delete(h.clients, userID)
		h.logger.Debug("Last client disconnected for user. User removed.", port.Fields{"user_id": userID})
		return
	}
	h.clients[userID] = remaining
	h.logger.Info("Client disconnected for user.", port.Fields{
		"user_id":               userID,
		"remaining_connections": len(remaining),
	})
}

// Connections - число открытых соединений пользователя.
func (h *SSEHub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *SSEHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, channels := range h.clients {
		for _, ch := range channels {
			close(ch)
		}
		delete(h.clients, userID)
	}
}
