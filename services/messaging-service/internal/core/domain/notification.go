package domain

import (
	"time"

	"marketplace/pkg/pagination"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationNewMessage      NotificationType = "new_message"
	NotificationNewInquiry      NotificationType = "new_inquiry"
	NotificationListingArchived NotificationType = "listing_archived"
	NotificationReportUpdated   NotificationType = "report_updated"
)

type Notification struct {
	ID        uuid.UUID              `json:"id"`
	UserID    uuid.UUID              `json:"user_id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data"`
	ReadAt    *time.Time             `json:"read_at"`
	CreatedAt time.Time              `json:"created_at"`
}

type NotificationPage = pagination.Page[Notification]

func (n *Notification) CreatedCursor() pagination.Cursor {
	return pagination.TimeCursor(SortCreated, n.CreatedAt, n.ID)
}
