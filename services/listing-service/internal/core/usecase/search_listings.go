package usecase

import (
	"context"
	"strings"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"
	"marketplace/services/listing-service/internal/core/port/usecases_port"
)

type SearchListingsUseCase struct {
	repo port.ListingRepositoryPort
}

func NewSearchListingsUseCase(repo port.ListingRepositoryPort) *SearchListingsUseCase {
	return &SearchListingsUseCase{repo: repo}
}

// Execute - публичный поиск по опубликованным объявлениям.
func (uc *SearchListingsUseCase) Execute(ctx context.Context, q usecases_port.SearchListingsQuery) (*domain.ListingPage, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "SearchListings"})

	sort := q.Sort
	if sort == "" {
		sort = domain.SortNewest
	}
	if !domain.ValidSearchSort(sort) {
		return nil, domain.NewValidationError("sort", "must be one of newest, price_asc, price_desc")
	}

	filters, err := buildFilters(q, sort)
	if err != nil {
		return nil, err
	}

	page, err := uc.repo.Search(ctx, filters)
	if err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	logger.Debug("Search finished", port.Fields{"items": len(page.Items), "has_more": page.HasMore})
	return page, nil
}

func buildFilters(q usecases_port.SearchListingsQuery, sort string) (domain.ListingFilters, error) {
	f := domain.ListingFilters{
		Query:    strings.TrimSpace(q.Query),
		PriceMin: q.PriceMin,
		PriceMax: q.PriceMax,
		City:     strings.TrimSpace(q.City),
		Region:   strings.TrimSpace(q.Region),
		Sort:     sort,
		Limit:    pagination.NormalizeLimit(q.Limit, pagination.DefaultLimit, pagination.MaxLimit),
	}

	if q.Category != "" {
		c := domain.Category(q.Category)
		if !c.Valid() {
			return f, domain.NewValidationError("category", "must be one of car, building, land")
		}
		f.Category = c
	}
	if q.PriceMin != nil && q.PriceMax != nil && *q.PriceMin > *q.PriceMax {
		return f, domain.NewValidationError("price", "min must not exceed max")
	}

	if q.NearLat != nil || q.NearLon != nil {
		if err := validateCoordinates(q.NearLat, q.NearLon); err != nil {
			return f, err
		}
		precision := q.Precision
		if precision == 0 {
			precision = defaultNearPrecision
		}
		if precision < 1 || precision > listingGeohashPrecision {
			return f, domain.NewValidationError("precision", "must be between 1 and 9")
		}
		f.Near = &domain.NearFilter{
			Latitude:  *q.NearLat,
			Longitude: *q.NearLon,
			Precision: precision,
			Prefixes:  nearPrefixes(*q.NearLat, *q.NearLon, precision),
		}
	}

	cursor, err := pagination.DecodeFor(q.Cursor, sort)
	if err != nil {
		return f, err
	}
	f.Cursor = cursor
	return f, nil
}

type ListMyListingsUseCase struct {
	repo port.ListingRepositoryPort
}

func NewListMyListingsUseCase(repo port.ListingRepositoryPort) *ListMyListingsUseCase {
	return &ListMyListingsUseCase{repo: repo}
}

// Execute - объявления продавца в любом статусе, новые первыми.
func (uc *ListMyListingsUseCase) Execute(ctx context.Context, actor domain.Actor, status domain.ListingStatus, cursor string, limit int) (*domain.ListingPage, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "ListMyListings",
		"user_id":  actor.UserID,
	})

	if status != "" && !status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of draft, published, archived")
	}
	c, err := pagination.DecodeFor(cursor, domain.SortCreated)
	if err != nil {
		return nil, err
	}

	page, err := uc.repo.ListBySeller(ctx, actor.UserID, status, c, pagination.NormalizeLimit(limit, pagination.DefaultLimit, pagination.MaxLimit))
	if err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	return page, nil
}

type AdminSearchListingsUseCase struct {
	repo port.ListingRepositoryPort
}

func NewAdminSearchListingsUseCase(repo port.ListingRepositoryPort) *AdminSearchListingsUseCase {
	return &AdminSearchListingsUseCase{repo: repo}
}

// Execute - поиск для админки: все статусы, сортировка по дате создания.
func (uc *AdminSearchListingsUseCase) Execute(ctx context.Context, q usecases_port.AdminSearchQuery) (*domain.ListingPage, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "AdminSearchListings"})

	base, err := buildFilters(q.SearchListingsQuery, domain.SortCreated)
	if err != nil {
		return nil, err
	}
	filters := domain.AdminListingFilters{ListingFilters: base, SellerID: q.SellerID}
	if q.Status != "" {
		status := domain.ListingStatus(q.Status)
		if !status.Valid() {
			return nil, domain.NewValidationError("status", "must be one of draft, published, archived")
		}
		filters.Status = status
	}

	page, err := uc.repo.AdminSearch(ctx, filters)
	if err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	return page, nil
}
