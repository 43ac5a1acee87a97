package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"marketplace/pkg/httpmetrics"
	core_port "marketplace/services/listing-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers - все обработчики сервиса, собранные в app.go.
type Handlers struct {
	Listings  *ListingsHandler
	Media     *MediaHandler
	Favorites *FavoritesHandler
	Inquiries *InquiriesHandler
	Admin     *AdminHandler
}

// Server - наш REST API сервер.
type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

// NewRouter собирает маршруты. Вынесен отдельно, чтобы тесты могли работать с роутером напрямую.
func NewRouter(h Handlers, metrics *httpmetrics.Metrics, baseLogger core_port.LoggerPort) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware(baseLogger))
	r.Use(middleware.Recoverer)
	if metrics != nil {
		r.Use(metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Публичный каталог. Идентичность необязательна: владелец видит свои черновики.
		r.Group(func(r chi.Router) {
			r.Use(OptionalAuthMiddleware)
			r.Get("/listings", h.Listings.SearchListings)
			r.Get("/listings/{id}", h.Listings.GetListing)
			r.Get("/categories", h.Listings.ListCategories)
		})

		// Маршрут для messaging-service. api-gateway его не проксирует.
		r.Get("/internal/listings/{id}", h.Listings.GetListingSummary)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware)

			r.Post("/listings", h.Listings.CreateListing)
			r.Post("/listings/import", h.Listings.ImportListing)
			r.Patch("/listings/{id}", h.Listings.UpdateListing)
			r.Delete("/listings/{id}", h.Listings.DeleteListing)
			r.Post("/listings/{id}/status", h.Listings.ChangeStatus)

			r.Post("/listings/{id}/uploads", h.Media.CreateUploadURL)
			r.Post("/listings/{id}/images", h.Media.AttachImage)
			r.Delete("/listings/{id}/images", h.Media.RemoveImage)

			r.Post("/listings/{id}/inquiries", h.Inquiries.CreateInquiry)
			r.Get("/inquiries/received", h.Inquiries.ListReceived)
			r.Get("/inquiries/sent", h.Inquiries.ListSent)
			r.Post("/inquiries/{id}/read", h.Inquiries.MarkRead)

			r.Get("/me/listings", h.Listings.ListMyListings)

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", h.Favorites.GetUserFavorites)
				r.Get("/ids", h.Favorites.GetUserFavoritesIds)
				r.Post("/", h.Favorites.AddToFavorites)
				r.Delete("/{listingID}", h.Favorites.RemoveFromFavorites)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/listings", h.Admin.SearchListings)
				r.Post("/import", h.Listings.ImportListing)
				r.Get("/analytics/listings", h.Admin.ListingAnalytics)
			})
		})
	})

	return r
}

// NewServer создает новый экземпляр сервера.
func NewServer(port string, h Handlers, metrics *httpmetrics.Metrics, baseLogger core_port.LoggerPort) *Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           NewRouter(h, metrics, baseLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     baseLogger,
	}
}

// Start запускает HTTP-сервер.
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", core_port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Could not start server", err, nil)
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop корректно останавливает сервер.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST API server...", nil)
	return s.httpServer.Shutdown(ctx)
}
