package usecases_port

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"
)

type MessagingAnalyticsUseCasePort interface {
	Execute(ctx context.Context, admin domain.Actor, days int) (*domain.MessagingAnalytics, error)
}
