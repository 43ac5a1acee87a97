package rest

import (
	"fmt"
	"net/http"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
)

const keepAliveInterval = 15 * time.Second

// ClientRegistry - реестр SSE-подключений (реализует realtime.SSEHub).
type ClientRegistry interface {
	AddClient(userID uuid.UUID) chan []byte
	RemoveClient(userID uuid.UUID, ch chan []byte)
}

type RealtimeHandler struct {
	clients   ClientRegistry
	keepAlive time.Duration
}

func NewRealtimeHandler(clients ClientRegistry) *RealtimeHandler {
	return &RealtimeHandler{clients: clients, keepAlive: keepAliveInterval}
}

// Subscribe обрабатывает GET /api/v1/realtime/subscribe
func (h *RealtimeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	handlerLogger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler": "RealtimeSubscribe",
		"user_id": actor.UserID,
	})

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteJSONError(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	clientChan := h.clients.AddClient(actor.UserID)
	defer h.clients.RemoveClient(actor.UserID, clientChan)

	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()
	handlerLogger.Info("SSE client subscribed", nil)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case frame, open := <-clientChan:
			if !open {
				handlerLogger.Info("SSE hub stopped, closing stream", nil)
				return
			}
			if _, err := w.Write(frame); err != nil {
				handlerLogger.Warn("Error writing to client, closing SSE connection", port.Fields{"error": err.Error()})
				return
			}
			flusher.Flush()

		case <-ticker.C:
			// строки с двоеточием клиенты игнорируют, соединение остается живым
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			handlerLogger.Info("SSE client disconnected", nil)
			return
		}
	}
}
