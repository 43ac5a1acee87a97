package rest

import (
	"net/http"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"
	"marketplace/services/listing-service/internal/core/port/usecases_port"
)

type InquiriesHandler struct {
	createUC   usecases_port.CreateInquiryUseCasePort
	receivedUC usecases_port.ListInquiriesUseCasePort
	sentUC     usecases_port.ListInquiriesUseCasePort
	markReadUC usecases_port.MarkInquiryReadUseCasePort
}

func NewInquiriesHandler(createUC usecases_port.CreateInquiryUseCasePort,
	receivedUC usecases_port.ListInquiriesUseCasePort,
	sentUC usecases_port.ListInquiriesUseCasePort,
	markReadUC usecases_port.MarkInquiryReadUseCasePort) *InquiriesHandler {
	return &InquiriesHandler{
		createUC:   createUC,
		receivedUC: receivedUC,
		sentUC:     sentUC,
		markReadUC: markReadUC,
	}
}

// CreateInquiry обрабатывает POST /api/v1/listings/{id}/inquiries
func (h *InquiriesHandler) CreateInquiry(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateInquiry"})

	actor, _ := actorFromContext(r.Context())
	listingID, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	var req CreateInquiryRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	inquiry, err := h.createUC.Execute(r.Context(), actor, listingID, domain.InquiryInput{
		Message:      req.Message,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to create inquiry")
		return
	}
	RespondWithJSON(w, http.StatusCreated, toInquiryResponse(*inquiry))
}

// ListReceived обрабатывает GET /api/v1/inquiries/received
func (h *InquiriesHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "ListReceivedInquiries", h.receivedUC)
}

// ListSent обрабатывает GET /api/v1/inquiries/sent
func (h *InquiriesHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "ListSentInquiries", h.sentUC)
}

func (h *InquiriesHandler) list(w http.ResponseWriter, r *http.Request, name string, uc usecases_port.ListInquiriesUseCasePort) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": name})

	actor, _ := actorFromContext(r.Context())
	limit, err := limitParam(r)
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	page, err := uc.Execute(r.Context(), actor, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to list inquiries")
		return
	}
	RespondWithJSON(w, http.StatusOK, mapPage(page, toInquiryResponse))
}

// MarkRead обрабатывает POST /api/v1/inquiries/{id}/read
func (h *InquiriesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "MarkInquiryRead"})

	actor, _ := actorFromContext(r.Context())
	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	inquiry, err := h.markReadUC.Execute(r.Context(), actor, id)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to mark inquiry read")
		return
	}
	RespondWithJSON(w, http.StatusOK, toInquiryResponse(*inquiry))
}
