package usecase

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"
	"marketplace/services/listing-service/internal/core/port/usecases_port"
)

type ImportListingUseCase struct {
	scraper port.ListingPageScraperPort
	create  usecases_port.CreateListingUseCasePort
}

func NewImportListingUseCase(scraper port.ListingPageScraperPort, create usecases_port.CreateListingUseCasePort) *ImportListingUseCase {
	return &ImportListingUseCase{scraper: scraper, create: create}
}

// Execute создает черновик по OpenGraph-разметке внешней страницы.
// Категорию указывает пользователь, атрибуты заполняются вручную перед публикацией.
func (uc *ImportListingUseCase) Execute(ctx context.Context, actor domain.Actor, rawURL string, category domain.Category) (*domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "ImportListing",
		"user_id":  actor.UserID,
		"url":      rawURL,
	})
	logger.Info("Use case started", nil)

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.NewValidationError("url", "must be an absolute http(s) URL")
	}
	if !category.Valid() {
		return nil, domain.NewValidationError("category", "must be one of car, building, land")
	}

	scraped, err := uc.scraper.Scrape(ctx, u.String())
	if err != nil {
		logger.Error("Scraper returned an error", err, nil)
		return nil, err
	}

	input := domain.ListingInput{
		Category:       category,
		Title:          truncateRunes(scraped.Title, maxTitleLength),
		Description:    truncateRunes(scraped.Description, maxDescriptionLength),
		Price:          scraped.Price,
		Currency:       scraped.Currency,
		SourceURL:      u.String(),
		SourceImageURL: scraped.ImageURL,
	}
	if _, err := normalizeCurrency(input.Currency); err != nil {
		input.Currency = ""
	}
	if input.Price < 0 {
		input.Price = 0
	}

	listing, err := uc.create.Execute(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	logger.Info("Use case finished successfully", port.Fields{"listing_id": listing.ID})
	return listing, nil
}

func truncateRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
