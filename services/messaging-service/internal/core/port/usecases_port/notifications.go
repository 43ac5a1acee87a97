package usecases_port

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
)

type ListNotificationsUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, unreadOnly bool, cursor string, limit int) (*domain.NotificationPage, error)
}

type MarkNotificationsReadUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, ids []uuid.UUID) (int64, error)
}

type MarkAllNotificationsReadUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor) (int64, error)
}

type UnreadCountUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor) (int64, error)
}
