package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrMissingToken = errors.New("authorization header required")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity - проверенный пользователь, которого gateway передает сервисам.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// Config - ожидаемые claims. Пустой Issuer не проверяется.
type Config struct {
	Issuer   string
	Audience string
	Secret   []byte
	Leeway   time.Duration
}

// supabaseClaims - access-токен Supabase Auth. Верхнеуровневый "role"
// содержит роль PostgREST ("authenticated"), роль приложения лежит в app_metadata.
type supabaseClaims struct {
	Email       string `json:"email"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// Verifier проверяет подпись и claims access-токена.
type Verifier struct {
	jwks   keyfunc.Keyfunc
	secret []byte
	parser *jwt.Parser
}

// NewRemoteKeySet загружает JWKS и обновляет его в фоне, пока жив ctx.
func NewRemoteKeySet(ctx context.Context, jwksURL string) (keyfunc.Keyfunc, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS keyfunc for %s: %w", jwksURL, err)
	}
	return k, nil
}

// NewVerifier принимает асимметричные токены по набору ключей jwks и,
// если задан секрет проекта, HS256. Нужен хотя бы один источник ключей.
func NewVerifier(cfg Config, jwks keyfunc.Keyfunc) (*Verifier, error) {
	var methods []string
	if jwks != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg())
	}
	if len(cfg.Secret) > 0 {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if len(methods) == 0 {
		return nil, errors.New("auth: either a JWKS key set or a JWT secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Verifier{
		jwks:   jwks,
		secret: cfg.Secret,
		parser: jwt.NewParser(opts...),
	}, nil
}

func (v *Verifier) keyFor(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		if len(v.secret) == 0 {
			return nil, errors.New("hmac signed tokens are not accepted")
		}
		return v.secret, nil
	}
	if v.jwks == nil {
		return nil, fmt.Errorf("no key set configured for %s", token.Method.Alg())
	}
	return v.jwks.Keyfunc(token)
}

// Verify возвращает ErrInvalidToken для любой ошибки подписи, срока или claims.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	claims := &supabaseClaims{}
	if _, err := v.parser.ParseWithClaims(tokenString, claims, v.keyFor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	role := RoleUser
	if claims.AppMetadata.Role == RoleAdmin {
		role = RoleAdmin
	}

	return &Identity{
		UserID: userID,
		Email:  claims.Email,
		Role:   role,
	}, nil
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: expected bearer scheme", ErrInvalidToken)
	}
	return strings.TrimSpace(token), nil
}
