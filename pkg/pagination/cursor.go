package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCursor - курсор не декодируется или не подходит к запросу.
var ErrInvalidCursor = errors.New("invalid cursor")

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor - позиция в выборке: последний ключ сортировки и id строки.
// Time используется для сортировок по дате, Value - для числовых (цена).
type Cursor struct {
	Sort  string     `json:"s,omitempty"`
	Time  *time.Time `json:"t,omitempty"`
	Value *float64   `json:"v,omitempty"`
	ID    uuid.UUID  `json:"id"`
}

// TimeCursor - курсор по (время, id).
func TimeCursor(sort string, t time.Time, id uuid.UUID) Cursor {
	tt := t.UTC()
	return Cursor{Sort: sort, Time: &tt, ID: id}
}

// ValueCursor - курсор по (число, id).
func ValueCursor(sort string, v float64, id uuid.UUID) Cursor {
	return Cursor{Sort: sort, Value: &v, ID: id}
}

// Encode возвращает base64url без паддинга.
func (c Cursor) Encode() string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode разбирает курсор. Пустая строка - первая страница (nil, nil).
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.ID == uuid.Nil {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// DecodeFor разбирает курсор и проверяет, что он выдан для той же сортировки
// и содержит нужный ключ.
func DecodeFor(s, sort string) (*Cursor, error) {
	c, err := Decode(s)
	if err != nil || c == nil {
		return c, err
	}
	if c.Sort != sort {
		return nil, ErrInvalidCursor
	}
	if c.Time == nil && c.Value == nil {
		return nil, ErrInvalidCursor
	}
	return c, nil
}

// NormalizeLimit приводит limit к диапазону [1, max], 0 и меньше - def.
func NormalizeLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Page - страница результатов.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// BuildPage собирает страницу из выборки размером limit+1:
// лишняя строка только сигнализирует о продолжении.
func BuildPage[T any](items []T, limit int, cursorOf func(T) Cursor) Page[T] {
	if items == nil {
		items = []T{}
	}
	page := Page[T]{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}
	if page.HasMore && len(page.Items) > 0 {
		page.NextCursor = cursorOf(page.Items[len(page.Items)-1]).Encode()
	}
	return page
}
