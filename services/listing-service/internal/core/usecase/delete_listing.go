package usecase

import (
	"context"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
)

type DeleteListingUseCase struct {
	repo    port.ListingRepositoryPort
	storage port.ObjectStoragePort
}

func NewDeleteListingUseCase(repo port.ListingRepositoryPort, storage port.ObjectStoragePort) *DeleteListingUseCase {
	return &DeleteListingUseCase{repo: repo, storage: storage}
}

// Execute: владелец удаляет только черновики, администратор - любое объявление.
// Файлы в хранилище удаляются после записи в БД, ошибки только логируются.
func (uc *DeleteListingUseCase) Execute(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "DeleteListing",
		"user_id":    actor.UserID,
		"listing_id": id,
	})
	logger.Info("Use case started", nil)

	listing, err := loadManageable(ctx, uc.repo, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && listing.Status != domain.StatusDraft {
		logger.Warn("Owner tried to delete a non-draft listing", port.Fields{"status": listing.Status})
		return domain.ErrForbidden
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return err
	}

	for _, p := range listing.Images {
		if err := uc.storage.DeleteObject(ctx, p); err != nil {
			logger.Warn("Failed to delete image from storage", port.Fields{"path": p, "error": err.Error()})
		}
	}

	logger.Info("Use case finished successfully", nil)
	return nil
}
