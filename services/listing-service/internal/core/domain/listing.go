package domain

import (
	"strings"
	"time"

	"marketplace/pkg/pagination"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryCar      Category = "car"
	CategoryBuilding Category = "building"
	CategoryLand     Category = "land"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCar, CategoryBuilding, CategoryLand:
		return true
	}
	return false
}

type ListingStatus string

const (
	StatusDraft     ListingStatus = "draft"
	StatusPublished ListingStatus = "published"
	StatusArchived  ListingStatus = "archived"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// ArchiveReason попадает в событие listing.archived.
type ArchiveReason string

const (
	ArchiveBySeller ArchiveReason = "seller"
	ArchiveByAdmin  ArchiveReason = "admin"
	ArchiveExpired  ArchiveReason = "expired"
)

const MaxImagesPerListing = 20

// Listing - объявление о продаже автомобиля, здания или участка.
type Listing struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	Category    Category
	Title       string
	Description string
	Price       float64
	Currency    string
	City        string
	Region      string
	Latitude    *float64
	Longitude   *float64
	Geohash     string
	Attributes  map[string]interface{}
	Images      []string // пути объектов в Supabase Storage
	Status      ListingStatus
	ViewsCount  int64
	// SourceURL и SourceImageURL заполняются при импорте со сторонней страницы.
	SourceURL      string
	SourceImageURL string
	PublishedAt    *time.Time
	ArchivedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanTransition описывает жизненный цикл:
// draft -> published, published -> archived, archived -> published.
func (l *Listing) CanTransition(target ListingStatus) bool {
	switch l.Status {
	case StatusDraft:
		return target == StatusPublished
	case StatusPublished:
		return target == StatusArchived
	case StatusArchived:
		return target == StatusPublished
	}
	return false
}

// ApplyTransition меняет статус и временные метки без проверки допустимости.
func (l *Listing) ApplyTransition(target ListingStatus, at time.Time) {
	l.Status = target
	l.UpdatedAt = at
	switch target {
	case StatusPublished:
		l.PublishedAt = &at
		l.ArchivedAt = nil
	case StatusArchived:
		l.ArchivedAt = &at
	}
}

// PublishProblems проверяет обязательные для публикации поля.
// Атрибуты категории проверяются отдельно по JSON-схеме.
func (l *Listing) PublishProblems() error {
	switch {
	case strings.TrimSpace(l.Title) == "":
		return NewValidationError("title", "is required to publish")
	case l.Price <= 0:
		return NewValidationError("price", "must be positive to publish")
	case len(l.Currency) != 3:
		return NewValidationError("currency", "is required to publish")
	case strings.TrimSpace(l.City) == "":
		return NewValidationError("city", "is required to publish")
	}
	return nil
}

func (l *Listing) HasImage(path string) bool {
	for _, p := range l.Images {
		if p == path {
			return true
		}
	}
	return false
}

// ListingInput - данные для создания объявления.
type ListingInput struct {
	Category    Category
	Title       string
	Description string
	Price       float64
	Currency    string
	City        string
	Region      string
	Latitude    *float64
	Longitude   *float64
	Attributes  map[string]interface{}

	SourceURL      string
	SourceImageURL string
}

// ListingPatch - частичное обновление; nil означает "не менять".
type ListingPatch struct {
	Title         *string
	Description   *string
	Price         *float64
	Currency      *string
	City          *string
	Region        *string
	Latitude      *float64
	Longitude     *float64
	ClearLocation bool
	Attributes    map[string]interface{}
}

// Сортировки публичного поиска.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	// SortCreated - для "моих объявлений" и админки.
	SortCreated = "created"
)

func ValidSearchSort(s string) bool {
	switch s {
	case SortNewest, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// NearFilter - поиск рядом с точкой по префиксу geohash.
type NearFilter struct {
	Latitude  float64
	Longitude float64
	Precision int
	// Prefixes - ячейка и восемь соседей, заполняется use case.
	Prefixes []string
}

// ListingFilters - фильтры публичного поиска.
type ListingFilters struct {
	Category Category
	Query    string
	PriceMin *float64
	PriceMax *float64
	City     string
	Region   string
	Near     *NearFilter
	Sort     string
	Cursor   *pagination.Cursor
	Limit    int
}

// AdminListingFilters расширяет поиск статусом и продавцом.
type AdminListingFilters struct {
	ListingFilters
	Status   ListingStatus
	SellerID *uuid.UUID
}

// ListingPage - страница объявлений.
type ListingPage = pagination.Page[Listing]

// ListingSummary - краткие данные для других сервисов.
type ListingSummary struct {
	ID         uuid.UUID     `json:"id"`
	SellerID   uuid.UUID     `json:"seller_id"`
	Title      string        `json:"title"`
	Status     ListingStatus `json:"status"`
	Price      float64       `json:"price"`
	Currency   string        `json:"currency"`
	FirstImage string        `json:"first_image,omitempty"`
}

// CategoryInfo - категория с отображаемым именем и схемой атрибутов.
type CategoryInfo struct {
	Name        Category `json:"name"`
	DisplayName string   `json:"display_name"`
	Schema      string   `json:"attributes_schema"`
}
