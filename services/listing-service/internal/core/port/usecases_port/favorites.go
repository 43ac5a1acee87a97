package usecases_port

import (
	"context"

	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type AddToFavoritesUseCasePort interface {
	Execute(ctx context.Context, userID, listingID uuid.UUID) error
}

type RemoveFromFavoritesUseCasePort interface {
	Execute(ctx context.Context, userID, listingID uuid.UUID) error
}

type GetUserFavoritesUseCasePort interface {
	Execute(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*domain.FavoritePage, error)
}

type GetUserFavoritesIdsUseCasePort interface {
	Execute(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
