package usecases_port

import (
	"context"

	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type AdminSearchListingsUseCasePort interface {
	Execute(ctx context.Context, query AdminSearchQuery) (*domain.ListingPage, error)
}

type AdminSearchQuery struct {
	SearchListingsQuery
	Status   string
	SellerID *uuid.UUID
}

type ImportListingUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, url string, category domain.Category) (*domain.Listing, error)
}

type GetListingAnalyticsUseCasePort interface {
	Execute(ctx context.Context, days int) (*domain.ListingAnalytics, error)
}
