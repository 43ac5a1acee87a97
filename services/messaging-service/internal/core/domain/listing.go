package domain

import (
	"time"

	"github.com/google/uuid"
)

const ListingStatusPublished = "published"

// ListingSummary - краткие данные объявления из listing-service.
type ListingSummary struct {
	ID         uuid.UUID `json:"id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	FirstImage string    `json:"first_image,omitempty"`
}

// InquiryCreated приходит из шины, когда покупатель отправил запрос по объявлению.
type InquiryCreated struct {
	InquiryID    uuid.UUID `json:"inquiry_id"`
	ListingID    uuid.UUID `json:"listing_id"`
	ListingTitle string    `json:"listing_title"`
	SellerID     uuid.UUID `json:"seller_id"`
	BuyerID      uuid.UUID `json:"buyer_id"`
	Message      string    `json:"message"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListingArchived приходит из шины при снятии объявления с публикации.
type ListingArchived struct {
	ListingID  uuid.UUID `json:"listing_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Title      string    `json:"title"`
	Reason     string    `json:"reason"`
	ArchivedAt time.Time `json:"archived_at"`
}
