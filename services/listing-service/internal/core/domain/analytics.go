package domain

import (
	"time"

	"github.com/google/uuid"
)

type CategoryStatusCount struct {
	Category Category      `json:"category"`
	Status   ListingStatus `json:"status"`
	Count    int64         `json:"count"`
}

type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

type TopListing struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Category   Category  `json:"category"`
	ViewsCount int64     `json:"views_count"`
	Favorites  int64     `json:"favorites"`
}

// ListingAnalytics - агрегаты для админки.
type ListingAnalytics struct {
	Days              int                   `json:"days"`
	ByCategoryStatus  []CategoryStatusCount `json:"by_category_status"`
	NewListingsPerDay []DailyCount          `json:"new_listings_per_day"`
	InquiriesPerDay   []DailyCount          `json:"inquiries_per_day"`
	TopViewed         []TopListing          `json:"top_viewed"`
	FavoritesTotal    int64                 `json:"favorites_total"`
}
