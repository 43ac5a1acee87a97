package port

import (
	"context"
	"time"

	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
)

// ListingRepositoryPort - хранилище объявлений.
type ListingRepositoryPort interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	// Update сохраняет редактируемые поля (не статус).
	Update(ctx context.Context, listing *domain.Listing) error
	// UpdateStatus сохраняет новый статус, только если текущий равен from.
	// Иначе domain.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, listing *domain.Listing, from domain.ListingStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	AppendImage(ctx context.Context, id uuid.UUID, path string, max int) (bool, error)
	RemoveImage(ctx context.Context, id uuid.UUID, path string) (bool, error)

	Search(ctx context.Context, filters domain.ListingFilters) (*domain.ListingPage, error)
	AdminSearch(ctx context.Context, filters domain.AdminListingFilters) (*domain.ListingPage, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, status domain.ListingStatus, cursor *pagination.Cursor, limit int) (*domain.ListingPage, error)
	FindExpired(ctx context.Context, publishedBefore time.Time, limit int) ([]domain.Listing, error)
}

// FavoritesRepositoryPort - избранное пользователей.
type FavoritesRepositoryPort interface {
	Add(ctx context.Context, userID, listingID uuid.UUID) error
	Remove(ctx context.Context, userID, listingID uuid.UUID) error
	FindPaginatedByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.FavoritePage, error)
	FindFavoriteIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// InquiryRepositoryPort - запросы покупателей.
type InquiryRepositoryPort interface {
	Create(ctx context.Context, inquiry *domain.Inquiry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.InquiryPage, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.InquiryPage, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AnalyticsRepositoryPort - агрегаты на сыром SQL.
type AnalyticsRepositoryPort interface {
	ListingAnalytics(ctx context.Context, days int, topLimit int) (*domain.ListingAnalytics, error)
}
