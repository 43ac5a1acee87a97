package port

import (
	"context"

	"marketplace/services/listing-service/internal/core/domain"
)

// ListingEventPublisherPort отправляет доменные события в шину.
type ListingEventPublisherPort interface {
	PublishListingPublished(ctx context.Context, event domain.ListingPublishedEvent) error
	PublishListingArchived(ctx context.Context, event domain.ListingArchivedEvent) error
	PublishInquiryCreated(ctx context.Context, event domain.InquiryCreatedEvent) error
}
