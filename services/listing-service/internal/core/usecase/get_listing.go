package usecase

import (
	"context"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
)

type GetListingUseCase struct {
	repo port.ListingRepositoryPort
}

func NewGetListingUseCase(repo port.ListingRepositoryPort) *GetListingUseCase {
	return &GetListingUseCase{repo: repo}
}

// Execute отдает опубликованные объявления всем, черновики и архив - только
// владельцу и администратору. Просмотр не-владельцем увеличивает счетчик.
func (uc *GetListingUseCase) Execute(ctx context.Context, viewer *domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "GetListing",
		"listing_id": id,
	})

	listing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if listing.Status != domain.StatusPublished {
		if viewer == nil || !viewer.CanManage(listing) {
			return nil, domain.ErrListingNotFound
		}
		return listing, nil
	}

	if viewer == nil || viewer.UserID != listing.SellerID {
		if err := uc.repo.IncrementViews(ctx, id); err != nil {
			logger.Warn("Failed to increment views counter", port.Fields{"error": err.Error()})
		} else {
			listing.ViewsCount++
		}
	}
	return listing, nil
}
