package rest

import (
	"net/http"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/port"
	"marketplace/services/messaging-service/internal/core/port/usecases_port"
)

type AdminHandler struct {
	messagesUC  usecases_port.ListMessagesUseCasePort
	analyticsUC usecases_port.MessagingAnalyticsUseCasePort
}

func NewAdminHandler(messagesUC usecases_port.ListMessagesUseCasePort, analyticsUC usecases_port.MessagingAnalyticsUseCasePort) *AdminHandler {
	return &AdminHandler{messagesUC: messagesUC, analyticsUC: analyticsUC}
}

// ListConversationMessages обрабатывает GET /api/v1/admin/conversations/{id}/messages
func (h *AdminHandler) ListConversationMessages(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "AdminListMessages"})
	actor, _ := actorFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	page, err := h.messagesUC.Execute(r.Context(), actor, id, r.URL.Query().Get("before"), limit)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to list messages")
		return
	}
	RespondWithJSON(w, http.StatusOK, page)
}

// MessagingAnalytics обрабатывает GET /api/v1/admin/analytics/messaging?days=
func (h *AdminHandler) MessagingAnalytics(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "MessagingAnalytics"})
	actor, _ := actorFromContext(r.Context())

	days, err := intParam(r, "days")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	stats, err := h.analyticsUC.Execute(r.Context(), actor, days)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to build messaging analytics")
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}
