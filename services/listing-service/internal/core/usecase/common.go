package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"marketplace/pkg/contracts"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
)

const (
	listingGeohashPrecision = 9
	defaultNearPrecision    = 5
	maxTitleLength          = 200
	maxDescriptionLength    = 10000
	defaultCurrency         = "USD"
)

// loadManageable загружает объявление для изменения. Чужие черновики и архив
// не видны (ErrListingNotFound), чужие опубликованные - ErrForbidden.
func loadManageable(ctx context.Context, repo port.ListingRepositoryPort, actor domain.Actor, id uuid.UUID) (*domain.Listing, error) {
	listing, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.CanManage(listing) {
		return listing, nil
	}
	if listing.Status == domain.StatusPublished {
		return nil, domain.ErrForbidden
	}
	return nil, domain.ErrListingNotFound
}

func encodeGeohash(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return ""
	}
	return geohash.EncodeWithPrecision(*lat, *lon, listingGeohashPrecision)
}

// nearPrefixes - ячейка точки и ее восемь соседей, чтобы не терять
// объявления у границы ячейки.
func nearPrefixes(lat, lon float64, precision int) []string {
	cell := geohash.EncodeWithPrecision(lat, lon, uint(precision))
	return append([]string{cell}, geohash.Neighbors(cell)...)
}

func validateCoordinates(lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return domain.NewValidationError("location", "latitude and longitude must be set together")
	}
	if lat == nil {
		return nil
	}
	if *lat < -90 || *lat > 90 {
		return domain.NewValidationError("latitude", "must be between -90 and 90")
	}
	if *lon < -180 || *lon > 180 {
		return domain.NewValidationError("longitude", "must be between -180 and 180")
	}
	return nil
}

func validateText(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return domain.NewValidationError(field, "is too long")
	}
	return nil
}

func normalizeCurrency(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return defaultCurrency, nil
	}
	if len(c) != 3 {
		return "", domain.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", domain.NewValidationError("currency", "must be a 3-letter ISO code")
		}
	}
	return c, nil
}

// validateAttributes: partial - для черновиков, обязательные поля не требуются.
func validateAttributes(category domain.Category, attrs map[string]interface{}, partial bool) error {
	err := contracts.ValidateListingAttributes(string(category), attrs, partial)
	if err == nil {
		return nil
	}
	if errors.Is(err, contracts.ErrUnknownCategory) {
		return domain.NewValidationError("category", "unknown category")
	}
	return domain.NewValidationError("attributes", err.Error())
}

// validatePublishable - все проверки перед публикацией.
func validatePublishable(l *domain.Listing) error {
	if err := l.PublishProblems(); err != nil {
		return err
	}
	return validateAttributes(l.Category, l.Attributes, false)
}
