package domain

import (
	"time"

	"marketplace/pkg/pagination"

	"github.com/google/uuid"
)

type ConversationStatus string

const (
	ConversationOpen   ConversationStatus = "open"
	ConversationClosed ConversationStatus = "closed"
)

// SortActivity - ключ курсора для входящих: (last_message_at, id).
const SortActivity = "activity"

// Conversation - переписка покупателя и продавца по одному объявлению.
// На пару (объявление, покупатель) существует ровно одна переписка.
type Conversation struct {
	ID                 uuid.UUID          `json:"id"`
	ListingID          uuid.UUID          `json:"listing_id"`
	ListingTitle       string             `json:"listing_title"`
	BuyerID            uuid.UUID          `json:"buyer_id"`
	SellerID           uuid.UUID          `json:"seller_id"`
	Status             ConversationStatus `json:"status"`
	LastMessageAt      time.Time          `json:"last_message_at"`
	LastMessagePreview string             `json:"last_message_preview"`
	BuyerLastReadAt    *time.Time         `json:"buyer_last_read_at"`
	SellerLastReadAt   *time.Time         `json:"seller_last_read_at"`
	ClosedAt           *time.Time         `json:"closed_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`

	// UnreadCount считается для конкретного зрителя.
	UnreadCount int `json:"unread_count"`
}

type ConversationPage = pagination.Page[Conversation]

func (c *Conversation) IsParticipant(userID uuid.UUID) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// CanView - участник или модератор.
func (c *Conversation) CanView(a Actor) bool {
	return a.IsAdmin() || c.IsParticipant(a.UserID)
}

func (c *Conversation) Participants() []uuid.UUID {
	return []uuid.UUID{c.BuyerID, c.SellerID}
}

// Counterpart возвращает второго участника.
func (c *Conversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// LastReadAt - маркер прочтения участника.
func (c *Conversation) LastReadAt(userID uuid.UUID) *time.Time {
	switch userID {
	case c.BuyerID:
		return c.BuyerLastReadAt
	case c.SellerID:
		return c.SellerLastReadAt
	}
	return nil
}

func (c *Conversation) ActivityCursor() pagination.Cursor {
	return pagination.TimeCursor(SortActivity, c.LastMessageAt, c.ID)
}

// ReadState - результат отметки о прочтении.
type ReadState struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	UserID         uuid.UUID  `json:"user_id"`
	LastReadAt     *time.Time `json:"last_read_at"`
}
