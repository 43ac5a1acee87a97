package usecase

import (
	"context"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
)

type AddToFavoritesUseCase struct {
	repo     port.FavoritesRepositoryPort
	listings port.ListingRepositoryPort
}

func NewAddToFavoritesUseCase(repo port.FavoritesRepositoryPort, listings port.ListingRepositoryPort) *AddToFavoritesUseCase {
	return &AddToFavoritesUseCase{repo: repo, listings: listings}
}

// Execute добавляет опубликованное объявление в избранное. Повтор - успех.
func (uc *AddToFavoritesUseCase) Execute(ctx context.Context, userID, listingID uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "AddToFavorites",
		"user_id":    userID,
		"listing_id": listingID,
	})
	ucLogger.Info("Use case started", nil)

	listing, err := uc.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.Status != domain.StatusPublished {
		return domain.ErrListingNotPublished
	}

	if err := uc.repo.Add(ctx, userID, listingID); err != nil {
		ucLogger.Error("Repository returned an error", err, nil)
		return err
	}

	ucLogger.Info("Use case finished successfully", nil)
	return nil
}

type RemoveFromFavoritesUseCase struct {
	repo port.FavoritesRepositoryPort
}

func NewRemoveFromFavoritesUseCase(repo port.FavoritesRepositoryPort) *RemoveFromFavoritesUseCase {
	return &RemoveFromFavoritesUseCase{repo: repo}
}

func (uc *RemoveFromFavoritesUseCase) Execute(ctx context.Context, userID, listingID uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "RemoveFromFavorites",
		"user_id":    userID,
		"listing_id": listingID,
	})
	logger.Info("Use case started", nil)

	if err := uc.repo.Remove(ctx, userID, listingID); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return err
	}

	logger.Info("Use case finished successfully", nil)
	return nil
}

type GetUserFavoritesUseCase struct {
	repo port.FavoritesRepositoryPort
}

func NewGetUserFavoritesUseCase(repo port.FavoritesRepositoryPort) *GetUserFavoritesUseCase {
	return &GetUserFavoritesUseCase{repo: repo}
}

// Execute - избранное пользователя, последние добавленные первыми.
func (uc *GetUserFavoritesUseCase) Execute(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*domain.FavoritePage, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "GetUserFavorites",
		"user_id":  userID,
	})

	c, err := pagination.DecodeFor(cursor, domain.SortCreated)
	if err != nil {
		return nil, err
	}
	page, err := uc.repo.FindPaginatedByUser(ctx, userID, c, pagination.NormalizeLimit(limit, pagination.DefaultLimit, pagination.MaxLimit))
	if err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	return page, nil
}

type GetUserFavoritesIdsUseCase struct {
	repo port.FavoritesRepositoryPort
}

func NewGetUserFavoritesIdsUseCase(repo port.FavoritesRepositoryPort) *GetUserFavoritesIdsUseCase {
	return &GetUserFavoritesIdsUseCase{repo: repo}
}

func (uc *GetUserFavoritesIdsUseCase) Execute(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := uc.repo.FindFavoriteIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}
