package server

import (
	"fmt"
	"net/http"
	"time"

	"marketplace/pkg/httpmetrics"
	"marketplace/pkg/ratelimit"
	"marketplace/services/api-gateway/internal/auth"
	"marketplace/services/api-gateway/internal/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Префикс для всех внутренних API
const internalAPIPrefix = "/api/v1"

// RouterConfig - зависимости главного роутера.
type RouterConfig struct {
	ListingServiceURL   string
	MessagingServiceURL string
	AllowedOrigins      []string
	CORSMaxAge          int

	Auth    *AuthMiddleware
	Limiter *ratelimit.KeyedLimiter
	Metrics *httpmetrics.Metrics
	Logger  port.LoggerPort
}

// NewRouter собирает маршруты gateway. Маршруты /internal/* не проксируются.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	listing, err := CreateProxy(cfg.ListingServiceURL, internalAPIPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing-service proxy: %w", err)
	}
	messaging, err := CreateProxy(cfg.MessagingServiceURL, internalAPIPrefix)
	if err != nil {
		return nil, fmt.Errorf("messaging-service proxy: %w", err)
	}
	realtime, err := CreateSSEProxy(cfg.MessagingServiceURL, internalAPIPrefix)
	if err != nil {
		return nil, fmt.Errorf("messaging-service SSE proxy: %w", err)
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(cfg.Logger), middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trace-ID", "Last-Event-ID"},
		ExposedHeaders:   []string{"X-Trace-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           cfg.CORSMaxAge,
	}))
	r.Use(StripIdentityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(RateLimitMiddleware(cfg.Limiter))
		}

		// --- Публичный каталог: токен необязателен, владелец видит свои черновики ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.OptionalAuthenticate)
			r.Get("/listings", listing.ServeHTTP)
			r.Get("/listings/{id}", listing.ServeHTTP)
			r.Get("/categories", listing.ServeHTTP)
		})

		// --- Приватные маршруты (для всех авторизованных) ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Authenticate)

			// listing-service
			r.Post("/listings", listing.ServeHTTP)
			r.Post("/listings/import", listing.ServeHTTP)
			r.Patch("/listings/{id}", listing.ServeHTTP)
			r.Delete("/listings/{id}", listing.ServeHTTP)
			// status, uploads, images, inquiries
			r.Handle("/listings/{id}/*", listing)
			r.Get("/me/listings", listing.ServeHTTP)
			r.Mount("/favorites", listing)
			r.Mount("/inquiries", listing)

			// messaging-service
			r.Mount("/conversations", messaging)
			r.Mount("/notifications", messaging)
			r.Mount("/reports", messaging)
			r.Get("/realtime/subscribe", realtime.ServeHTTP)
		})

		// --- Приватные маршруты (только для админов) ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.Auth.Authenticate)
			r.Use(cfg.Auth.RequireRole(auth.RoleAdmin))

			r.Get("/listings", listing.ServeHTTP)
			r.Post("/import", listing.ServeHTTP)
			r.Get("/analytics/listings", listing.ServeHTTP)

			r.Mount("/reports", messaging)
			r.Get("/conversations/{id}/messages", messaging.ServeHTTP)
			r.Get("/analytics/messaging", messaging.ServeHTTP)
		})
	})

	return r, nil
}

// NewServer создает HTTP-сервер gateway. WriteTimeout не задан: SSE-потоки долгоживущие.
func NewServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
