package rest

import (
	"net/http"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/port"
	"marketplace/services/listing-service/internal/core/port/usecases_port"
)

type MediaHandler struct {
	uploadUC  usecases_port.CreateUploadURLUseCasePort
	attachUC  usecases_port.AttachImageUseCasePort
	removeUC  usecases_port.RemoveImageUseCasePort
	presenter listingPresenter
}

func NewMediaHandler(uploadUC usecases_port.CreateUploadURLUseCasePort,
	attachUC usecases_port.AttachImageUseCasePort,
	removeUC usecases_port.RemoveImageUseCasePort,
	imageURL ImageURLFunc) *MediaHandler {
	return &MediaHandler{
		uploadUC:  uploadUC,
		attachUC:  attachUC,
		removeUC:  removeUC,
		presenter: newListingPresenter(imageURL),
	}
}

// CreateUploadURL обрабатывает POST /api/v1/listings/{id}/uploads
func (h *MediaHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateUploadURL"})

	actor, _ := actorFromContext(r.Context())
	listingID, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	var req CreateUploadRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	upload, err := h.uploadUC.Execute(r.Context(), actor, listingID, req.FileName, req.ContentType)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to create upload URL")
		return
	}
	RespondWithJSON(w, http.StatusCreated, upload)
}

// AttachImage обрабатывает POST /api/v1/listings/{id}/images
func (h *MediaHandler) AttachImage(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "AttachImage"})

	actor, _ := actorFromContext(r.Context())
	listingID, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	var req AttachImageRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	listing, err := h.attachUC.Execute(r.Context(), actor, listingID, req.Path)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to attach image")
		return
	}
	RespondWithJSON(w, http.StatusOK, h.presenter.listing(*listing))
}

// RemoveImage обрабатывает DELETE /api/v1/listings/{id}/images?path=...
func (h *MediaHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "RemoveImage"})

	actor, _ := actorFromContext(r.Context())
	listingID, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		WriteJSONError(w, http.StatusBadRequest, "path: is required")
		return
	}

	listing, err := h.removeUC.Execute(r.Context(), actor, listingID, path)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to remove image")
		return
	}
	RespondWithJSON(w, http.StatusOK, h.presenter.listing(*listing))
}
