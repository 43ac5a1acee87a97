package port

import (
	"context"

	"marketplace/services/listing-service/internal/core/domain"
)

// ListingPageScraperPort извлекает данные объявления со сторонней страницы.
type ListingPageScraperPort interface {
	Scrape(ctx context.Context, url string) (*domain.ScrapedListing, error)
}
