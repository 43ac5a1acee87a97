package rest

import (
	"net/http"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/port"
	"marketplace/services/listing-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
)

// FavoritesHandler - избранное текущего пользователя.
type FavoritesHandler struct {
	addUC        usecases_port.AddToFavoritesUseCasePort
	removeUC     usecases_port.RemoveFromFavoritesUseCasePort
	getObjectsUC usecases_port.GetUserFavoritesUseCasePort
	getIdsUC     usecases_port.GetUserFavoritesIdsUseCasePort
	presenter    listingPresenter
}

func NewFavoritesHandler(addUC usecases_port.AddToFavoritesUseCasePort,
	removeUC usecases_port.RemoveFromFavoritesUseCasePort,
	getObjectsUC usecases_port.GetUserFavoritesUseCasePort,
	getIdsUC usecases_port.GetUserFavoritesIdsUseCasePort,
	imageURL ImageURLFunc) *FavoritesHandler {
	return &FavoritesHandler{
		addUC:        addUC,
		removeUC:     removeUC,
		getObjectsUC: getObjectsUC,
		getIdsUC:     getIdsUC,
		presenter:    newListingPresenter(imageURL),
	}
}

// GetUserFavoritesIds обрабатывает GET /api/v1/favorites/ids
func (h *FavoritesHandler) GetUserFavoritesIds(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetUserFavoritesIds"})

	actor, ok := actorFromContext(r.Context())
	if !ok {
		logger.Error("Invalid or missing user ID in context", nil, nil)
		WriteJSONError(w, http.StatusUnauthorized, "Invalid user ID in context")
		return
	}

	ids, err := h.getIdsUC.Execute(r.Context(), actor.UserID)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to retrieve favorites")
		return
	}
	RespondWithJSON(w, http.StatusOK, ids)
}

// GetUserFavorites обрабатывает GET /api/v1/favorites
func (h *FavoritesHandler) GetUserFavorites(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetUserFavorites"})

	actor, ok := actorFromContext(r.Context())
	if !ok {
		logger.Error("Invalid or missing user ID in context", nil, nil)
		WriteJSONError(w, http.StatusUnauthorized, "Invalid user ID in context")
		return
	}

	limit, err := limitParam(r)
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	handlerLogger := logger.WithFields(port.Fields{"user_id": actor.UserID, "limit": limit})
	handlerLogger.Debug("Processing request to get user favorites", nil)

	page, err := h.getObjectsUC.Execute(r.Context(), actor.UserID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeUseCaseError(w, handlerLogger, err, "Failed to retrieve favorites")
		return
	}

	RespondWithJSON(w, http.StatusOK, mapPage(page, h.presenter.favorite))
}

// AddToFavorites обрабатывает POST /api/v1/favorites
func (h *FavoritesHandler) AddToFavorites(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "AddToFavorites"})

	actor, _ := actorFromContext(r.Context())
	var reqDTO AddFavoriteRequest
	if err := decodeAndValidate(w, r, &reqDTO); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	listingID := uuid.MustParse(reqDTO.ListingID)

	handlerLogger := logger.WithFields(port.Fields{"user_id": actor.UserID, "listing_id": listingID})
	if err := h.addUC.Execute(r.Context(), actor.UserID, listingID); err != nil {
		writeUseCaseError(w, handlerLogger, err, "Failed to add to favorites")
		return
	}

	handlerLogger.Info("Successfully added listing to favorites", nil)
	w.WriteHeader(http.StatusCreated)
}

// RemoveFromFavorites обрабатывает DELETE /api/v1/favorites/{listingID}
func (h *FavoritesHandler) RemoveFromFavorites(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "RemoveFromFavorites"})

	actor, _ := actorFromContext(r.Context())
	listingID, err := uuidParam(r, "listingID")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	if err := h.removeUC.Execute(r.Context(), actor.UserID, listingID); err != nil {
		writeUseCaseError(w, logger, err, "Failed to remove from favorites")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
