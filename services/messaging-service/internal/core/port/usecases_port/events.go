package usecases_port

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"
)

// HandleInquiryCreatedUseCasePort - реакция на inquiry.created.
type HandleInquiryCreatedUseCasePort interface {
	Execute(ctx context.Context, event domain.InquiryCreated) error
}

// HandleListingArchivedUseCasePort - реакция на listing.archived.
type HandleListingArchivedUseCasePort interface {
	Execute(ctx context.Context, event domain.ListingArchived) error
}
