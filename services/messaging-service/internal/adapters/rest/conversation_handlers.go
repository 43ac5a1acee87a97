package rest

import (
	"net/http"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/port"
	"marketplace/services/messaging-service/internal/core/port/usecases_port"
)

// ConversationsHandler - переписки и сообщения.
type ConversationsHandler struct {
	startUC    usecases_port.StartConversationUseCasePort
	listUC     usecases_port.ListConversationsUseCasePort
	getUC      usecases_port.GetConversationUseCasePort
	markReadUC usecases_port.MarkConversationReadUseCasePort
	sendUC     usecases_port.SendMessageUseCasePort
	historyUC  usecases_port.ListMessagesUseCasePort
	pollUC     usecases_port.ListMessagesUseCasePort
}

type ConversationsUseCases struct {
	Start    usecases_port.StartConversationUseCasePort
	List     usecases_port.ListConversationsUseCasePort
	Get      usecases_port.GetConversationUseCasePort
	MarkRead usecases_port.MarkConversationReadUseCasePort
	Send     usecases_port.SendMessageUseCasePort
	History  usecases_port.ListMessagesUseCasePort
	Poll     usecases_port.ListMessagesUseCasePort
}

func NewConversationsHandler(uc ConversationsUseCases) *ConversationsHandler {
	return &ConversationsHandler{
		startUC:    uc.Start,
		listUC:     uc.List,
		getUC:      uc.Get,
		markReadUC: uc.MarkRead,
		sendUC:     uc.Send,
		historyUC:  uc.History,
		pollUC:     uc.Poll,
	}
}

// StartConversation обрабатывает POST /api/v1/conversations
func (h *ConversationsHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "StartConversation"})
	actor, _ := actorFromContext(r.Context())

	var req startConversationRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	conv, res, err := h.startUC.Execute(r.Context(), actor, req.ListingID, req.Body, req.ClientMessageID)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to start conversation")
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	RespondWithJSON(w, status, startConversationResponse{Conversation: conv, Message: &res.Message, Duplicate: res.Duplicate})
}

// ListConversations обрабатывает GET /api/v1/conversations
func (h *ConversationsHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ListConversations"})
	actor, _ := actorFromContext(r.Context())

	limit, err := intParam(r, "limit")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	page, err := h.listUC.Execute(r.Context(), actor, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to list conversations")
		return
	}
	RespondWithJSON(w, http.StatusOK, page)
}

// GetConversation обрабатывает GET /api/v1/conversations/{id}
func (h *ConversationsHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetConversation"})
	actor, _ := actorFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	conv, err := h.getUC.Execute(r.Context(), actor, id)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to get conversation")
		return
	}
	RespondWithJSON(w, http.StatusOK, conv)
}

// MarkRead обрабатывает POST /api/v1/conversations/{id}/read
func (h *ConversationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "MarkConversationRead"})
	actor, _ := actorFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	// тело необязательно: без него отмечается все до последнего сообщения
	var req markReadRequest
	if r.ContentLength != 0 {
		if err := decodeAndValidate(w, r, &req); err != nil {
			writeUseCaseError(w, logger, err, "")
			return
		}
	}

	state, err := h.markReadUC.Execute(r.Context(), actor, id, req.UpToMessageID)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to mark conversation read")
		return
	}
	RespondWithJSON(w, http.StatusOK, state)
}

// SendMessage обрабатывает POST /api/v1/conversations/{id}/messages.
// Повтор с тем же client_message_id возвращает 200 и исходное сообщение.
func (h *ConversationsHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "SendMessage"})
	actor, _ := actorFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	var req sendMessageRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	res, err := h.sendUC.Execute(r.Context(), actor, id, req.Body, req.ClientMessageID)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to send message")
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	RespondWithJSON(w, status, res)
}

// ListMessages обрабатывает GET /api/v1/conversations/{id}/messages?before=
func (h *ConversationsHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	h.listMessages(w, r, h.historyUC, "before", "ListMessages")
}

// PollMessages обрабатывает GET /api/v1/conversations/{id}/messages/poll?after=
func (h *ConversationsHandler) PollMessages(w http.ResponseWriter, r *http.Request) {
	h.listMessages(w, r, h.pollUC, "after", "PollMessages")
}

func (h *ConversationsHandler) listMessages(w http.ResponseWriter, r *http.Request, uc usecases_port.ListMessagesUseCasePort, cursorParam, name string) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": name})
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
	page, err := uc.Execute(r.Context(), actor, id, r.URL.Query().Get(cursorParam), limit)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to list messages")
		return
	}
	RespondWithJSON(w, http.StatusOK, page)
}
