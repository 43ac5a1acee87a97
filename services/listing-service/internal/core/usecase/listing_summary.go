package usecase

import (
	"context"

	"marketplace/pkg/contracts"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type GetListingSummaryUseCase struct {
	repo    port.ListingRepositoryPort
	storage port.ObjectStoragePort
}

func NewGetListingSummaryUseCase(repo port.ListingRepositoryPort, storage port.ObjectStoragePort) *GetListingSummaryUseCase {
	return &GetListingSummaryUseCase{repo: repo, storage: storage}
}

// Execute отдает краткие данные объявления в любом статусе.
// Используется только внутренними сервисами.
func (uc *GetListingSummaryUseCase) Execute(ctx context.Context, id uuid.UUID) (*domain.ListingSummary, error) {
	listing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := &domain.ListingSummary{
		ID:       listing.ID,
		SellerID: listing.SellerID,
		Title:    listing.Title,
		Status:   listing.Status,
		Price:    listing.Price,
		Currency: listing.Currency,
	}
	if len(listing.Images) > 0 {
		summary.FirstImage = uc.storage.PublicURL(listing.Images[0])
	}
	return summary, nil
}

type ListCategoriesUseCase struct {
	categories []domain.CategoryInfo
}

func NewListCategoriesUseCase() *ListCategoriesUseCase {
	caser := cases.Title(language.English)
	var out []domain.CategoryInfo
	for _, name := range contracts.ListingCategories() {
		out = append(out, domain.CategoryInfo{
			Name:        domain.Category(name),
			DisplayName: caser.String(name),
			Schema:      "listings/" + name + ".json",
		})
	}
	return &ListCategoriesUseCase{categories: out}
}

func (uc *ListCategoriesUseCase) Execute(ctx context.Context) []domain.CategoryInfo {
	return uc.categories
}
