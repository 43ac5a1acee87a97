package usecase

import (
	"context"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
)

type CreateUploadURLUseCase struct {
	repo    port.ListingRepositoryPort
	storage port.ObjectStoragePort
}

func NewCreateUploadURLUseCase(repo port.ListingRepositoryPort, storage port.ObjectStoragePort) *CreateUploadURLUseCase {
	return &CreateUploadURLUseCase{repo: repo, storage: storage}
}

// Execute выдает подписанную ссылку для загрузки изображения в каталог объявления.
// Клиент загружает файл напрямую в хранилище, затем вызывает AttachImage.
func (uc *CreateUploadURLUseCase) Execute(ctx context.Context, actor domain.Actor, listingID uuid.UUID, fileName, contentType string) (*domain.SignedUpload, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":     "CreateUploadURL",
		"user_id":      actor.UserID,
		"listing_id":   listingID,
		"file_name":    fileName,
		"content_type": contentType,
	})
	logger.Info("Use case started", nil)

	ext, ok := domain.ImageExtension(contentType)
	if !ok {
		return nil, domain.NewValidationError("content_type", "must be image/jpeg, image/png or image/webp")
	}

	listing, err := loadManageable(ctx, uc.repo, actor, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == domain.StatusArchived {
		return nil, domain.ErrListingReadOnly
	}
	if len(listing.Images) >= domain.MaxImagesPerListing {
		return nil, domain.ErrTooManyImages
	}

	objectPath := domain.ListingImagePrefix(listingID) + uuid.NewString() + ext
	upload, err := uc.storage.CreateSignedUploadURL(ctx, objectPath)
	if err != nil {
		logger.Error("Object storage returned an error", err, nil)
		return nil, err
	}

	logger.Info("Use case finished successfully", port.Fields{"path": upload.Path})
	return upload, nil
}

type AttachImageUseCase struct {
	repo port.ListingRepositoryPort
}

func NewAttachImageUseCase(repo port.ListingRepositoryPort) *AttachImageUseCase {
	return &AttachImageUseCase{repo: repo}
}

// Execute добавляет загруженный файл к объявлению. Повторное добавление - no-op.
func (uc *AttachImageUseCase) Execute(ctx context.Context, actor domain.Actor, listingID uuid.UUID, path string) (*domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "AttachImage",
		"user_id":    actor.UserID,
		"listing_id": listingID,
		"path":       path,
	})

	if !domain.ImagePathBelongsTo(path, listingID) {
		return nil, domain.NewValidationError("path", "must be inside the listing folder")
	}

	listing, err := loadManageable(ctx, uc.repo, actor, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == domain.StatusArchived {
		return nil, domain.ErrListingReadOnly
	}
	if listing.HasImage(path) {
		return listing, nil
	}
	if len(listing.Images) >= domain.MaxImagesPerListing {
		return nil, domain.ErrTooManyImages
	}

	appended, err := uc.repo.AppendImage(ctx, listingID, path, domain.MaxImagesPerListing)
	if err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	if !appended {
		// параллельный запрос успел добавить тот же файл или занять лимит
		fresh, err := uc.repo.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if fresh.HasImage(path) {
			return fresh, nil
		}
		return nil, domain.ErrTooManyImages
	}

	listing.Images = append(listing.Images, path)
	logger.Info("Image attached", port.Fields{"images": len(listing.Images)})
	return listing, nil
}

type RemoveImageUseCase struct {
	repo    port.ListingRepositoryPort
	storage port.ObjectStoragePort
}

func NewRemoveImageUseCase(repo port.ListingRepositoryPort, storage port.ObjectStoragePort) *RemoveImageUseCase {
	return &RemoveImageUseCase{repo: repo, storage: storage}
}

// Execute убирает изображение из объявления и удаляет файл из хранилища.
func (uc *RemoveImageUseCase) Execute(ctx context.Context, actor domain.Actor, listingID uuid.UUID, path string) (*domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "RemoveImage",
		"user_id":    actor.UserID,
		"listing_id": listingID,
		"path":       path,
	})

	listing, err := loadManageable(ctx, uc.repo, actor, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == domain.StatusArchived {
		return nil, domain.ErrListingReadOnly
	}
	if !listing.HasImage(path) {
		return nil, domain.ErrImageNotFound
	}

	if _, err := uc.repo.RemoveImage(ctx, listingID, path); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	if err := uc.storage.DeleteObject(ctx, path); err != nil {
		logger.Warn("Failed to delete image from storage", port.Fields{"error": err.Error()})
	}

	kept := listing.Images[:0]
	for _, p := range listing.Images {
		if p != path {
			kept = append(kept, p)
		}
	}
	listing.Images = kept
	return listing, nil
}
