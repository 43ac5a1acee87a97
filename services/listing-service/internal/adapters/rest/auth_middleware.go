package rest

import (
	"context"
	"net/http"

	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
)

// Определяем кастомный тип для ключа контекста, чтобы избежать коллизий.
type contextKey string

const actorKey = contextKey("actor")

// Заголовки выставляет api-gateway после проверки JWT.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

func actorFromHeaders(r *http.Request) (*domain.Actor, bool, error) {
	userIDStr := r.Header.Get(headerUserID)
	if userIDStr == "" {
		return nil, false, nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, true, err
	}
	role := domain.RoleUser
	if r.Header.Get(headerUserRole) == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	return &domain.Actor{UserID: userID, Role: role}, true, nil
}

// AuthMiddleware требует идентичность пользователя.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, present, err := actorFromHeaders(r)
		if !present {
			WriteJSONError(w, http.StatusUnauthorized, "X-User-ID header is missing")
			return
		}
		if err != nil {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid X-User-ID header format")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, *actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthMiddleware - для публичных маршрутов: владелец видит свои черновики.
func OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, present, err := actorFromHeaders(r)
		if present && err != nil {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid X-User-ID header format")
			return
		}
		if actor != nil {
			r = r.WithContext(context.WithValue(r.Context(), actorKey, *actor))
		}
		next.ServeHTTP(w, r)
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
