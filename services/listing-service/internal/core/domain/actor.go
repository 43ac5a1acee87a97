package domain

import "github.com/google/uuid"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Actor - пользователь, от имени которого выполняется операция.
// Идентичность проверяет api-gateway и передает заголовками.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanManage - владелец или администратор.
func (a Actor) CanManage(l *Listing) bool {
	return a.IsAdmin() || l.SellerID == a.UserID
}
