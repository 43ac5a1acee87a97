package server

import (
	"context"
	"errors"
	"net/http"

	"marketplace/pkg/contextkeys"
	"marketplace/services/api-gateway/internal/auth"
	"marketplace/services/api-gateway/internal/port"
)

// Заголовки идентичности, которым доверяют сервисы за gateway.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderUserEmail = "X-User-Email"
)

// TokenVerifier - проверка access-токена.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

type identityKey struct{}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// StripIdentityHeaders удаляет X-User-* из входящего запроса: клиент не может
// представиться другим пользователем, выставив их сам.
func StripIdentityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(HeaderUserID)
		r.Header.Del(HeaderUserRole)
		r.Header.Del(HeaderUserEmail)
		next.ServeHTTP(w, r)
	})
}

// Authenticate - middleware для проверки JWT
func (am *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := am.identify(r)
		if err != nil {
			am.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, withIdentity(r, identity))
	})
}

// OptionalAuthenticate пропускает анонимные запросы, но неверный токен
// отклоняет так же, как Authenticate.
func (am *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := am.identify(r)
		if err != nil {
			am.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, withIdentity(r, identity))
	})
}

// RequireRole - middleware для проверки роли пользователя.
// Ставится после Authenticate.
func (am *AuthMiddleware) RequireRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteJSONError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
				return
			}
			if identity.Role != requiredRole {
				contextkeys.LoggerFromContext(r.Context()).Warn("Role check failed", port.Fields{
					"user_id":       identity.UserID.String(),
					"role":          identity.Role,
					"required_role": requiredRole,
				})
				WriteJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (am *AuthMiddleware) identify(r *http.Request) (*auth.Identity, error) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return am.verifier.Verify(token)
}

func (am *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	contextkeys.LoggerFromContext(r.Context()).Debug("Request rejected by authentication", port.Fields{"reason": err.Error()})
	w.Header().Set("WWW-Authenticate", `Bearer realm="marketplace"`)
	if errors.Is(err, auth.ErrMissingToken) {
		WriteJSONError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return
	}
	WriteJSONError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
}

// withIdentity кладет пользователя в контекст и в заголовки для проксируемого запроса.
func withIdentity(r *http.Request, identity *auth.Identity) *http.Request {
	r.Header.Set(HeaderUserID, identity.UserID.String())
	r.Header.Set(HeaderUserRole, identity.Role)
	if identity.Email != "" {
		r.Header.Set(HeaderUserEmail, identity.Email)
	}

	ctx := context.WithValue(r.Context(), identityKey{}, identity)
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"user_id": identity.UserID.String()})
	ctx = contextkeys.ContextWithLogger(ctx, logger)
	return r.WithContext(ctx)
}

func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*auth.Identity)
	return identity, ok && identity != nil
}
