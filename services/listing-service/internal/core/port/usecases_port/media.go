package usecases_port

import (
	"context"

	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type CreateUploadURLUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, listingID uuid.UUID, fileName, contentType string) (*domain.SignedUpload, error)
}

type AttachImageUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, listingID uuid.UUID, path string) (*domain.Listing, error)
}

type RemoveImageUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, listingID uuid.UUID, path string) (*domain.Listing, error)
}
