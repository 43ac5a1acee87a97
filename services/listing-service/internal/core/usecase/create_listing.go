package usecase

import (
	"context"
	"strings"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
)

type CreateListingUseCase struct {
	repo port.ListingRepositoryPort
	now  func() time.Time
}

func NewCreateListingUseCase(repo port.ListingRepositoryPort) *CreateListingUseCase {
	return &CreateListingUseCase{repo: repo, now: time.Now}
}

// Execute создает черновик объявления.
func (uc *CreateListingUseCase) Execute(ctx context.Context, actor domain.Actor, input domain.ListingInput) (*domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "CreateListing",
		"user_id":  actor.UserID,
		"category": input.Category,
	})
	logger.Info("Use case started", nil)

	if !input.Category.Valid() {
		return nil, domain.NewValidationError("category", "must be one of car, building, land")
	}
	title := strings.TrimSpace(input.Title)
	if err := validateText("title", title, maxTitleLength); err != nil {
		return nil, err
	}
	if err := validateText("description", input.Description, maxDescriptionLength); err != nil {
		return nil, err
	}
	if input.Price < 0 {
		return nil, domain.NewValidationError("price", "must not be negative")
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	if err := validateCoordinates(input.Latitude, input.Longitude); err != nil {
		return nil, err
	}
	attrs := input.Attributes
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	if err := validateAttributes(input.Category, attrs, true); err != nil {
		logger.Warn("Listing attributes rejected", port.Fields{"reason": err.Error()})
		return nil, err
	}

	now := uc.now().UTC()
	listing := &domain.Listing{
		ID:             uuid.New(),
		SellerID:       actor.UserID,
		Category:       input.Category,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Price:          input.Price,
		Currency:       currency,
		City:           strings.TrimSpace(input.City),
		Region:         strings.TrimSpace(input.Region),
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		Geohash:        encodeGeohash(input.Latitude, input.Longitude),
		Attributes:     attrs,
		Images:         []string{},
		Status:         domain.StatusDraft,
		SourceURL:      input.SourceURL,
		SourceImageURL: input.SourceImageURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.repo.Create(ctx, listing); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	logger.Info("Use case finished successfully", port.Fields{"listing_id": listing.ID})
	return listing, nil
}
