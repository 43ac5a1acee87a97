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

type UpdateListingUseCase struct {
	repo port.ListingRepositoryPort
	now  func() time.Time
}

func NewUpdateListingUseCase(repo port.ListingRepositoryPort) *UpdateListingUseCase {
	return &UpdateListingUseCase{repo: repo, now: time.Now}
}

// Execute применяет частичное обновление. Архивные объявления не редактируются,
// опубликованные после изменения должны оставаться пригодными к публикации.
func (uc *UpdateListingUseCase) Execute(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.ListingPatch) (*domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "UpdateListing",
		"user_id":    actor.UserID,
		"listing_id": id,
	})
	logger.Info("Use case started", nil)

	listing, err := loadManageable(ctx, uc.repo, actor, id)
	if err != nil {
		logger.Warn("Listing is not available for update", port.Fields{"error": err.Error()})
		return nil, err
	}
	if listing.Status == domain.StatusArchived {
		return nil, domain.ErrListingReadOnly
	}

	if err := applyPatch(listing, patch); err != nil {
		return nil, err
	}

	partial := listing.Status == domain.StatusDraft
	if err := validateAttributes(listing.Category, listing.Attributes, partial); err != nil {
		return nil, err
	}
	if !partial {
		if err := listing.PublishProblems(); err != nil {
			return nil, err
		}
	}

	listing.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, listing); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	logger.Info("Use case finished successfully", nil)
	return listing, nil
}

func applyPatch(l *domain.Listing, p domain.ListingPatch) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if err := validateText("title", title, maxTitleLength); err != nil {
			return err
		}
		l.Title = title
	}
	if p.Description != nil {
		if err := validateText("description", *p.Description, maxDescriptionLength); err != nil {
			return err
		}
		l.Description = strings.TrimSpace(*p.Description)
	}
	if p.Price != nil {
		if *p.Price < 0 {
			return domain.NewValidationError("price", "must not be negative")
		}
		l.Price = *p.Price
	}
	if p.Currency != nil {
		currency, err := normalizeCurrency(*p.Currency)
		if err != nil {
			return err
		}
		l.Currency = currency
	}
	if p.City != nil {
		l.City = strings.TrimSpace(*p.City)
	}
	if p.Region != nil {
		l.Region = strings.TrimSpace(*p.Region)
	}

	switch {
	case p.ClearLocation:
		l.Latitude, l.Longitude = nil, nil
	case p.Latitude != nil || p.Longitude != nil:
		if err := validateCoordinates(p.Latitude, p.Longitude); err != nil {
			return err
		}
		l.Latitude, l.Longitude = p.Latitude, p.Longitude
	}
	l.Geohash = encodeGeohash(l.Latitude, l.Longitude)

	// атрибуты заменяются целиком
	if p.Attributes != nil {
		l.Attributes = p.Attributes
	}
	return nil
}
