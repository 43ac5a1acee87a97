package port

import (
	"context"

	"marketplace/services/listing-service/internal/core/domain"
)

// ObjectStoragePort - внешнее хранилище файлов (Supabase Storage).
type ObjectStoragePort interface {
	CreateSignedUploadURL(ctx context.Context, objectPath string) (*domain.SignedUpload, error)
	DeleteObject(ctx context.Context, objectPath string) error
	PublicURL(objectPath string) string
}
