package domain

import (
	"strings"
	"time"

	"marketplace/pkg/pagination"

	"github.com/google/uuid"
)

const MaxInquiryMessageLength = 4000

// Inquiry - запрос покупателя по объявлению.
type Inquiry struct {
	ID           uuid.UUID
	ListingID    uuid.UUID
	ListingTitle string
	SellerID     uuid.UUID
	BuyerID      uuid.UUID
	Message      string
	ContactName  string
	ContactEmail string
	ContactPhone string
	ReadAt       *time.Time
	CreatedAt    time.Time
}

// InquiryInput - данные формы запроса.
type InquiryInput struct {
	Message      string
	ContactName  string
	ContactEmail string
	ContactPhone string
}

func (in InquiryInput) Validate() error {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return NewValidationError("message", "must not be empty")
	}
	if len([]rune(msg)) > MaxInquiryMessageLength {
		return NewValidationError("message", "is too long")
	}
	return nil
}

type InquiryPage = pagination.Page[Inquiry]
