package rest

import (
	"context"
	"net/http"

	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
)

type contextKey string

const actorKey = contextKey("actor")

// Заголовки выставляет api-gateway после проверки JWT.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// AuthMiddleware требует идентичность пользователя от gateway.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(headerUserID)
		if raw == "" {
			WriteJSONError(w, http.StatusUnauthorized, "X-User-ID header is missing")
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid X-User-ID header format")
			return
		}
		actor := domain.Actor{UserID: userID, Role: domain.RoleUser}
		if r.Header.Get(headerUserRole) == domain.RoleAdmin {
			actor.Role = domain.RoleAdmin
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin ставится после AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromContext(r.Context())
		if !ok || !actor.IsAdmin() {
			WriteJSONError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}
