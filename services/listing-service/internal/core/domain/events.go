package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListingPublishedEvent публикуется при каждой публикации объявления.
type ListingPublishedEvent struct {
	ListingID   uuid.UUID `json:"listing_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	Title       string    `json:"title"`
	Category    Category  `json:"category"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	City        string    `json:"city"`
	PublishedAt time.Time `json:"published_at"`
}

// ListingArchivedEvent закрывает переписки по объявлению.
type ListingArchivedEvent struct {
	ListingID  uuid.UUID     `json:"listing_id"`
	SellerID   uuid.UUID     `json:"seller_id"`
	Title      string        `json:"title"`
	Reason     ArchiveReason `json:"reason"`
	ArchivedAt time.Time     `json:"archived_at"`
}

// InquiryCreatedEvent открывает переписку у продавца.
type InquiryCreatedEvent struct {
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
