package usecases_port

import (
	"context"

	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type CreateListingUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, input domain.ListingInput) (*domain.Listing, error)
}

type UpdateListingUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.ListingPatch) (*domain.Listing, error)
}

// GetListingUseCasePort: viewer == nil - анонимный просмотр.
type GetListingUseCasePort interface {
	Execute(ctx context.Context, viewer *domain.Actor, id uuid.UUID) (*domain.Listing, error)
}

type SearchListingsUseCasePort interface {
	Execute(ctx context.Context, query SearchListingsQuery) (*domain.ListingPage, error)
}

type ListMyListingsUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, status domain.ListingStatus, cursor string, limit int) (*domain.ListingPage, error)
}

type ChangeListingStatusUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, id uuid.UUID, target domain.ListingStatus) (*domain.Listing, error)
}

type DeleteListingUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type ArchiveExpiredListingsUseCasePort interface {
	Execute(ctx context.Context) (int, error)
}

type GetListingSummaryUseCasePort interface {
	Execute(ctx context.Context, id uuid.UUID) (*domain.ListingSummary, error)
}

type ListCategoriesUseCasePort interface {
	Execute(ctx context.Context) []domain.CategoryInfo
}

// SearchListingsQuery - параметры поиска в сыром виде из запроса.
type SearchListingsQuery struct {
	Category  string
	Query     string
	PriceMin  *float64
	PriceMax  *float64
	City      string
	Region    string
	NearLat   *float64
	NearLon   *float64
	Precision int
	Sort      string
	Cursor    string
	Limit     int
}
