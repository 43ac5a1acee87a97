package rest

import (
	"time"

	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
)

// CreateListingRequest - тело POST /listings.
type CreateListingRequest struct {
	Category    string                 `json:"category" validate:"required,oneof=car building land"`
	Title       string                 `json:"title" validate:"max=200"`
	Description string                 `json:"description" validate:"max=10000"`
	Price       float64                `json:"price" validate:"gte=0"`
	Currency    string                 `json:"currency" validate:"omitempty,len=3,alpha"`
	City        string                 `json:"city" validate:"max=120"`
	Region      string                 `json:"region" validate:"max=120"`
	Latitude    *float64               `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64               `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Attributes  map[string]interface{} `json:"attributes"`
}

func (r CreateListingRequest) toInput() domain.ListingInput {
	return domain.ListingInput{
		Category:    domain.Category(r.Category),
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Currency:    r.Currency,
		City:        r.City,
		Region:      r.Region,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Attributes:  r.Attributes,
	}
}

// UpdateListingRequest - тело PATCH /listings/{id}; отсутствующие поля не меняются.
type UpdateListingRequest struct {
	Title         *string                `json:"title" validate:"omitempty,max=200"`
	Description   *string                `json:"description" validate:"omitempty,max=10000"`
	Price         *float64               `json:"price" validate:"omitempty,gte=0"`
	Currency      *string                `json:"currency" validate:"omitempty,len=3,alpha"`
	City          *string                `json:"city" validate:"omitempty,max=120"`
	Region        *string                `json:"region" validate:"omitempty,max=120"`
	Latitude      *float64               `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64               `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	ClearLocation bool                   `json:"clear_location"`
	Attributes    map[string]interface{} `json:"attributes"`
}

func (r UpdateListingRequest) toPatch() domain.ListingPatch {
	return domain.ListingPatch{
		Title:         r.Title,
		Description:   r.Description,
		Price:         r.Price,
		Currency:      r.Currency,
		City:          r.City,
		Region:        r.Region,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		ClearLocation: r.ClearLocation,
		Attributes:    r.Attributes,
	}
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=published archived"`
}

type CreateUploadRequest struct {
	FileName    string `json:"file_name" validate:"max=255"`
	ContentType string `json:"content_type" validate:"required"`
}

type AttachImageRequest struct {
	Path string `json:"path" validate:"required,max=512"`
}

type AddFavoriteRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
}

type CreateInquiryRequest struct {
	Message      string `json:"message" validate:"required,max=4000"`
	ContactName  string `json:"contact_name" validate:"max=120"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email,max=254"`
	ContactPhone string `json:"contact_phone" validate:"max=40"`
}

type ImportListingRequest struct {
	URL      string `json:"url" validate:"required,url"`
	Category string `json:"category" validate:"required,oneof=car building land"`
}

// ImageResponse - путь в бакете и публичная ссылка.
type ImageResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

type ListingResponse struct {
	ID             uuid.UUID              `json:"id"`
	SellerID       uuid.UUID              `json:"seller_id"`
	Category       domain.Category        `json:"category"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Price          float64                `json:"price"`
	Currency       string                 `json:"currency"`
	City           string                 `json:"city"`
	Region         string                 `json:"region"`
	Latitude       *float64               `json:"latitude"`
	Longitude      *float64               `json:"longitude"`
	Attributes     map[string]interface{} `json:"attributes"`
	Images         []ImageResponse        `json:"images"`
	Status         domain.ListingStatus   `json:"status"`
	ViewsCount     int64                  `json:"views_count"`
	SourceURL      string                 `json:"source_url,omitempty"`
	SourceImageURL string                 `json:"source_image_url,omitempty"`
	PublishedAt    *time.Time             `json:"published_at"`
	ArchivedAt     *time.Time             `json:"archived_at"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// PageResponse - страница с курсором следующей страницы.
type PageResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func mapPage[S, T any](page *pagination.Page[S], fn func(S) T) PageResponse[T] {
	out := PageResponse[T]{
		Items:      make([]T, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for i, item := range page.Items {
		out.Items[i] = fn(item)
	}
	return out
}

type FavoriteResponse struct {
	Listing     ListingResponse `json:"listing"`
	FavoritedAt time.Time       `json:"favorited_at"`
}

type InquiryResponse struct {
	ID           uuid.UUID  `json:"id"`
	ListingID    uuid.UUID  `json:"listing_id"`
	ListingTitle string     `json:"listing_title"`
	SellerID     uuid.UUID  `json:"seller_id"`
	BuyerID      uuid.UUID  `json:"buyer_id"`
	Message      string     `json:"message"`
	ContactName  string     `json:"contact_name,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
	ContactPhone string     `json:"contact_phone,omitempty"`
	ReadAt       *time.Time `json:"read_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toInquiryResponse(in domain.Inquiry) InquiryResponse {
	return InquiryResponse{
		ID:           in.ID,
		ListingID:    in.ListingID,
		ListingTitle: in.ListingTitle,
		SellerID:     in.SellerID,
		BuyerID:      in.BuyerID,
		Message:      in.Message,
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		ReadAt:       in.ReadAt,
		CreatedAt:    in.CreatedAt,
	}
}

// ErrorResponse - стандартная структура для ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}
