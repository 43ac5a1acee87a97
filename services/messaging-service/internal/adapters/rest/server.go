package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"marketplace/pkg/httpmetrics"
	core_port "marketplace/services/messaging-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers - все обработчики сервиса, собранные в app.go.
type Handlers struct {
	Conversations *ConversationsHandler
	Notifications *NotificationsHandler
	Reports       *ReportsHandler
	Admin         *AdminHandler
	Realtime      *RealtimeHandler
}

type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

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
		r.Use(AuthMiddleware)

		// поток событий живет дольше обычного запроса и сам выставляет заголовки
		r.Get("/realtime/subscribe", h.Realtime.Subscribe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SetHeader("Content-Type", "application/json"))

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", h.Conversations.ListConversations)
				r.Post("/", h.Conversations.StartConversation)
				r.Get("/{id}", h.Conversations.GetConversation)
				r.Post("/{id}/read", h.Conversations.MarkRead)
				r.Get("/{id}/messages", h.Conversations.ListMessages)
				r.Post("/{id}/messages", h.Conversations.SendMessage)
				r.Get("/{id}/messages/poll", h.Conversations.PollMessages)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notifications.ListNotifications)
				r.Get("/unread-count", h.Notifications.UnreadCount)
				r.Post("/read", h.Notifications.MarkRead)
				r.Post("/read-all", h.Notifications.MarkAllRead)
			})

			r.Get("/reports", h.Reports.ListMyReports)
			r.Post("/reports", h.Reports.CreateReport)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/reports", h.Reports.ListReports)
				r.Get("/reports/{id}", h.Reports.GetReport)
				r.Post("/reports/{id}/status", h.Reports.TransitionReport)
				r.Get("/conversations/{id}/messages", h.Admin.ListConversationMessages)
				r.Get("/analytics/messaging", h.Admin.MessagingAnalytics)
			})
		})
	})

	return r
}

func NewServer(port string, h Handlers, metrics *httpmetrics.Metrics, baseLogger core_port.LoggerPort) *Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           NewRouter(h, metrics, baseLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: srv, logger: baseLogger}
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

// Stop корректно останавливает сервер. Открытые SSE-потоки к этому моменту
// уже закрыты остановкой хаба.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST API server...", nil)
	return s.httpServer.Shutdown(ctx)
}
