package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"marketplace/pkg/pagination"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageText    MessageKind = "text"
	MessageInquiry MessageKind = "inquiry"
	MessageSystem  MessageKind = "system"
)

const (
	MaxMessageLength      = 4000
	MaxClientMessageIDLen = 100
	previewLength         = 140

	// SortCreated - ключ курсора истории: (created_at, id).
	SortCreated = "created"
)

// Message - сообщение переписки. У системных сообщений нет отправителя.
type Message struct {
	ID              uuid.UUID   `json:"id"`
	ConversationID  uuid.UUID   `json:"conversation_id"`
	SenderID        *uuid.UUID  `json:"sender_id"`
	Kind            MessageKind `json:"kind"`
	Body            string      `json:"body"`
	ClientMessageID string      `json:"client_message_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

type MessagePage = pagination.Page[Message]

// IsFrom - сообщение отправлено пользователем.
func (m *Message) IsFrom(userID uuid.UUID) bool {
	return m.SenderID != nil && *m.SenderID == userID
}

func (m *Message) CreatedCursor() pagination.Cursor {
	return pagination.TimeCursor(SortCreated, m.CreatedAt, m.ID)
}

// SendResult - сохраненное сообщение. Duplicate означает, что сообщение
// с тем же client_message_id уже было сохранено раньше.
type SendResult struct {
	Message   Message `json:"message"`
	Duplicate bool    `json:"duplicate"`
}

// NormalizeBody обрезает пробелы и проверяет длину.
func NormalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", NewValidationError("body", "must not be empty")
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return "", NewValidationError("body", "must be at most 4000 characters")
	}
	return body, nil
}

func ValidateClientMessageID(id string) error {
	if len(id) > MaxClientMessageIDLen {
		return NewValidationError("client_message_id", "must be at most 100 characters")
	}
	return nil
}

// Preview - первая строка сообщения для списка переписок.
func Preview(body string) string {
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[:i]
	}
	if utf8.RuneCountInString(body) <= previewLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewLength-1]) + "…"
}

// MessageTime - время в точности Postgres (микросекунды), чтобы курсоры совпадали с базой.
func MessageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
