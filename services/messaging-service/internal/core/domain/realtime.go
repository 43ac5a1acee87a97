package domain

import "github.com/google/uuid"

const (
	EventMessageCreated      = "message.created"
	EventConversationRead    = "conversation.read"
	EventConversationClosed  = "conversation.closed"
	EventNotificationCreated = "notification.created"
)

// RealtimeEvent - событие для доставки клиентам.
// Если ConversationID задан, событие идет в канал переписки, иначе в личные каналы получателей.
type RealtimeEvent struct {
	Type           string
	ConversationID *uuid.UUID
	Recipients     []uuid.UUID
	Payload        interface{}
}
