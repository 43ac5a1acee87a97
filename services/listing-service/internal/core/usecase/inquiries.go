package usecase

import (
	"context"
	"strings"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
)

type CreateInquiryUseCase struct {
	listings  port.ListingRepositoryPort
	inquiries port.InquiryRepositoryPort
	events    port.ListingEventPublisherPort
	now       func() time.Time
}

func NewCreateInquiryUseCase(listings port.ListingRepositoryPort, inquiries port.InquiryRepositoryPort, events port.ListingEventPublisherPort) *CreateInquiryUseCase {
	return &CreateInquiryUseCase{listings: listings, inquiries: inquiries, events: events, now: time.Now}
}

// Execute сохраняет запрос покупателя и публикует inquiry.created,
// по которому messaging-service открывает переписку.
func (uc *CreateInquiryUseCase) Execute(ctx context.Context, buyer domain.Actor, listingID uuid.UUID, input domain.InquiryInput) (*domain.Inquiry, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "CreateInquiry",
		"user_id":    buyer.UserID,
		"listing_id": listingID,
	})
	logger.Info("Use case started", nil)

	if err := input.Validate(); err != nil {
		return nil, err
	}

	listing, err := uc.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != domain.StatusPublished {
		return nil, domain.ErrListingNotPublished
	}
	if listing.SellerID == buyer.UserID {
		return nil, domain.ErrOwnListing
	}

	inquiry := &domain.Inquiry{
		ID:           uuid.New(),
		ListingID:    listing.ID,
		ListingTitle: listing.Title,
		SellerID:     listing.SellerID,
		BuyerID:      buyer.UserID,
		Message:      strings.TrimSpace(input.Message),
		ContactName:  strings.TrimSpace(input.ContactName),
		ContactEmail: strings.TrimSpace(input.ContactEmail),
		ContactPhone: strings.TrimSpace(input.ContactPhone),
		CreatedAt:    uc.now().UTC(),
	}
	if err := uc.inquiries.Create(ctx, inquiry); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	err = uc.events.PublishInquiryCreated(ctx, domain.InquiryCreatedEvent{
		InquiryID:    inquiry.ID,
		ListingID:    inquiry.ListingID,
		ListingTitle: inquiry.ListingTitle,
		SellerID:     inquiry.SellerID,
		BuyerID:      inquiry.BuyerID,
		Message:      inquiry.Message,
		ContactName:  inquiry.ContactName,
		ContactEmail: inquiry.ContactEmail,
		ContactPhone: inquiry.ContactPhone,
		CreatedAt:    inquiry.CreatedAt,
	})
	if err != nil {
		logger.Error("Failed to publish inquiry created event", err, port.Fields{"inquiry_id": inquiry.ID})
	}

	logger.Info("Use case finished successfully", port.Fields{"inquiry_id": inquiry.ID})
	return inquiry, nil
}

// ListReceivedInquiriesUseCase - входящие запросы продавца.
type ListReceivedInquiriesUseCase struct {
	repo port.InquiryRepositoryPort
}

func NewListReceivedInquiriesUseCase(repo port.InquiryRepositoryPort) *ListReceivedInquiriesUseCase {
	return &ListReceivedInquiriesUseCase{repo: repo}
}

func (uc *ListReceivedInquiriesUseCase) Execute(ctx context.Context, actor domain.Actor, cursor string, limit int) (*domain.InquiryPage, error) {
	c, err := pagination.DecodeFor(cursor, domain.SortCreated)
	if err != nil {
		return nil, err
	}
	return uc.repo.ListBySeller(ctx, actor.UserID, c, pagination.NormalizeLimit(limit, pagination.DefaultLimit, pagination.MaxLimit))
}

// ListSentInquiriesUseCase - отправленные запросы покупателя.
type ListSentInquiriesUseCase struct {
	repo port.InquiryRepositoryPort
}

func NewListSentInquiriesUseCase(repo port.InquiryRepositoryPort) *ListSentInquiriesUseCase {
	return &ListSentInquiriesUseCase{repo: repo}
}

func (uc *ListSentInquiriesUseCase) Execute(ctx context.Context, actor domain.Actor, cursor string, limit int) (*domain.InquiryPage, error) {
	c, err := pagination.DecodeFor(cursor, domain.SortCreated)
	if err != nil {
		return nil, err
	}
	return uc.repo.ListByBuyer(ctx, actor.UserID, c, pagination.NormalizeLimit(limit, pagination.DefaultLimit, pagination.MaxLimit))
}

type MarkInquiryReadUseCase struct {
	repo port.InquiryRepositoryPort
	now  func() time.Time
}

func NewMarkInquiryReadUseCase(repo port.InquiryRepositoryPort) *MarkInquiryReadUseCase {
	return &MarkInquiryReadUseCase{repo: repo, now: time.Now}
}

// Execute отмечает запрос прочитанным. Доступно только продавцу объявления.
func (uc *MarkInquiryReadUseCase) Execute(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Inquiry, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "MarkInquiryRead",
		"user_id":    actor.UserID,
		"inquiry_id": id,
	})

	inquiry, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inquiry.SellerID != actor.UserID {
		if inquiry.BuyerID == actor.UserID {
			return nil, domain.ErrForbidden
		}
		return nil, domain.ErrInquiryNotFound
	}
	if inquiry.ReadAt != nil {
		return inquiry, nil
	}

	at := uc.now().UTC()
	if err := uc.repo.MarkRead(ctx, id, at); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	inquiry.ReadAt = &at
	return inquiry, nil
}
