package usecases_port

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
)

type SendMessageUseCasePort interface {
	Execute(ctx context.Context, sender domain.Actor, conversationID uuid.UUID, body, clientMessageID string) (*domain.SendResult, error)
}

// ListMessagesUseCasePort - история (before) или опрос новых сообщений (after).
type ListMessagesUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, conversationID uuid.UUID, cursor string, limit int) (*domain.MessagePage, error)
}
