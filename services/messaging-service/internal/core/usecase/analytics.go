package usecase

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"
)

const (
	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 365
)

type MessagingAnalyticsUseCase struct {
	repo port.AnalyticsRepositoryPort
}

func NewMessagingAnalyticsUseCase(repo port.AnalyticsRepositoryPort) *MessagingAnalyticsUseCase {
	return &MessagingAnalyticsUseCase{repo: repo}
}

func (uc *MessagingAnalyticsUseCase) Execute(ctx context.Context, admin domain.Actor, days int) (*domain.MessagingAnalytics, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if days == 0 {
		days = defaultAnalyticsDays
	}
	if days < 1 || days > maxAnalyticsDays {
		return nil, domain.NewValidationError("days", "must be between 1 and 365")
	}
	return uc.repo.MessagingAnalytics(ctx, days)
}
