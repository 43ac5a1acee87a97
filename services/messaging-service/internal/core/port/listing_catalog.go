package port

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
)

// ListingCatalogPort - чтение объявлений из listing-service.
type ListingCatalogPort interface {
	GetListingSummary(ctx context.Context, id uuid.UUID) (*domain.ListingSummary, error)
}
