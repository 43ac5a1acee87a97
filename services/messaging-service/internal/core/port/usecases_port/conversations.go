package usecases_port

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
)

type StartConversationUseCasePort interface {
	Execute(ctx context.Context, buyer domain.Actor, listingID uuid.UUID, body, clientMessageID string) (*domain.Conversation, *domain.SendResult, error)
}

type ListConversationsUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, cursor string, limit int) (*domain.ConversationPage, error)
}

type GetConversationUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Conversation, error)
}

type MarkConversationReadUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, conversationID uuid.UUID, upToMessageID *uuid.UUID) (*domain.ReadState, error)
}
