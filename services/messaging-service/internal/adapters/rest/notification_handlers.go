package rest

import (
	"net/http"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/port"
	"marketplace/services/messaging-service/internal/core/port/usecases_port"
)

type NotificationsHandler struct {
	listUC    usecases_port.ListNotificationsUseCasePort
	markUC    usecases_port.MarkNotificationsReadUseCasePort
	markAllUC usecases_port.MarkAllNotificationsReadUseCasePort
	countUC   usecases_port.UnreadCountUseCasePort
}

func NewNotificationsHandler(
	listUC usecases_port.ListNotificationsUseCasePort,
	markUC usecases_port.MarkNotificationsReadUseCasePort,
	markAllUC usecases_port.MarkAllNotificationsReadUseCasePort,
	countUC usecases_port.UnreadCountUseCasePort,
) *NotificationsHandler {
	return &NotificationsHandler{listUC: listUC, markUC: markUC, markAllUC: markAllUC, countUC: countUC}
}

// ListNotifications обрабатывает GET /api/v1/notifications?unread=true
func (h *NotificationsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ListNotifications"})
	actor, _ := actorFromContext(r.Context())

	unreadOnly, err := boolParam(r, "unread")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	page, err := h.listUC.Execute(r.Context(), actor, unreadOnly, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to list notifications")
		return
	}
	RespondWithJSON(w, http.StatusOK, page)
}

// MarkRead обрабатывает POST /api/v1/notifications/read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "MarkNotificationsRead"})
	actor, _ := actorFromContext(r.Context())

	var req markNotificationsReadRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	n, err := h.markUC.Execute(r.Context(), actor, req.IDs)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to mark notifications read")
		return
	}
	RespondWithJSON(w, http.StatusOK, updatedResponse{Updated: n})
}

// MarkAllRead обрабатывает POST /api/v1/notifications/read-all
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "MarkAllNotificationsRead"})
	actor, _ := actorFromContext(r.Context())

	n, err := h.markAllUC.Execute(r.Context(), actor)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to mark notifications read")
		return
	}
	RespondWithJSON(w, http.StatusOK, updatedResponse{Updated: n})
}

// UnreadCount обрабатывает GET /api/v1/notifications/unread-count
func (h *NotificationsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "UnreadCount"})
	actor, _ := actorFromContext(r.Context())

	n, err := h.countUC.Execute(r.Context(), actor)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to count notifications")
		return
	}
	RespondWithJSON(w, http.StatusOK, countResponse{Count: n})
}
