package usecase

import (
	"context"

	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"
)

const (
	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 365
	topViewedLimit       = 10
)

type GetListingAnalyticsUseCase struct {
	repo port.AnalyticsRepositoryPort
}

func NewGetListingAnalyticsUseCase(repo port.AnalyticsRepositoryPort) *GetListingAnalyticsUseCase {
	return &GetListingAnalyticsUseCase{repo: repo}
}

func (uc *GetListingAnalyticsUseCase) Execute(ctx context.Context, days int) (*domain.ListingAnalytics, error) {
	if days == 0 {
		days = defaultAnalyticsDays
	}
	if days < 1 || days > maxAnalyticsDays {
		return nil, domain.NewValidationError("days", "must be between 1 and 365")
	}
	return uc.repo.ListingAnalytics(ctx, days, topViewedLimit)
}
