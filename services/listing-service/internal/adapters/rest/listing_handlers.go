package rest

import (
	"net/http"
	"strconv"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"
	"marketplace/services/listing-service/internal/core/port/usecases_port"
)

// ListingsHandler обслуживает объявления продавцов и публичный каталог.
type ListingsHandler struct {
	createUC     usecases_port.CreateListingUseCasePort
	updateUC     usecases_port.UpdateListingUseCasePort
	getUC        usecases_port.GetListingUseCasePort
	searchUC     usecases_port.SearchListingsUseCasePort
	listMyUC     usecases_port.ListMyListingsUseCasePort
	statusUC     usecases_port.ChangeListingStatusUseCasePort
	deleteUC     usecases_port.DeleteListingUseCasePort
	summaryUC    usecases_port.GetListingSummaryUseCasePort
	categoriesUC usecases_port.ListCategoriesUseCasePort
	importUC     usecases_port.ImportListingUseCasePort
	presenter    listingPresenter
}

type ListingsUseCases struct {
	Create     usecases_port.CreateListingUseCasePort
	Update     usecases_port.UpdateListingUseCasePort
	Get        usecases_port.GetListingUseCasePort
	Search     usecases_port.SearchListingsUseCasePort
	ListMy     usecases_port.ListMyListingsUseCasePort
	Status     usecases_port.ChangeListingStatusUseCasePort
	Delete     usecases_port.DeleteListingUseCasePort
	Summary    usecases_port.GetListingSummaryUseCasePort
	Categories usecases_port.ListCategoriesUseCasePort
	Import     usecases_port.ImportListingUseCasePort
}

func NewListingsHandler(uc ListingsUseCases, imageURL ImageURLFunc) *ListingsHandler {
	return &ListingsHandler{
		createUC:     uc.Create,
		updateUC:     uc.Update,
		getUC:        uc.Get,
		searchUC:     uc.Search,
		listMyUC:     uc.ListMy,
		statusUC:     uc.Status,
		deleteUC:     uc.Delete,
		summaryUC:    uc.Summary,
		categoriesUC: uc.Categories,
		importUC:     uc.Import,
		presenter:    newListingPresenter(imageURL),
	}
}

// SearchListings обрабатывает GET /api/v1/listings
func (h *ListingsHandler) SearchListings(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "SearchListings"})

	query, err := searchQueryFromRequest(r)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to search listings")
		return
	}

	page, err := h.searchUC.Execute(r.Context(), query)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to search listings")
		return
	}

	RespondWithJSON(w, http.StatusOK, mapPage(page, h.presenter.listing))
}

func searchQueryFromRequest(r *http.Request) (usecases_port.SearchListingsQuery, error) {
	q := r.URL.Query()
	query := usecases_port.SearchListingsQuery{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		City:     q.Get("city"),
		Region:   q.Get("region"),
		Sort:     q.Get("sort"),
		Cursor:   q.Get("cursor"),
	}

	var err error
	if query.Limit, err = limitParam(r); err != nil {
		return query, err
	}
	if query.PriceMin, err = floatParam(r, "price_min"); err != nil {
		return query, err
	}
	if query.PriceMax, err = floatParam(r, "price_max"); err != nil {
		return query, err
	}
	if query.NearLat, err = floatParam(r, "near_lat"); err != nil {
		return query, err
	}
	if query.NearLon, err = floatParam(r, "near_lon"); err != nil {
		return query, err
	}
	if raw := q.Get("precision"); raw != "" {
		p, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return query, domain.NewValidationError("precision", "must be an integer")
		}
		query.Precision = p
	}
	return query, nil
}

// GetListing обрабатывает GET /api/v1/listings/{id}
func (h *ListingsHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetListing"})

	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	var viewer *domain.Actor
	if actor, ok := actorFromContext(r.Context()); ok {
		viewer = &actor
	}

	listing, err := h.getUC.Execute(r.Context(), viewer, id)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to get listing")
		return
	}
	RespondWithJSON(w, http.StatusOK, h.presenter.listing(*listing))
}

// CreateListing обрабатывает POST /api/v1/listings
func (h *ListingsHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateListing"})

	actor, ok := actorFromContext(r.Context())
	if !ok {
		logger.Error("Invalid or missing actor in context", nil, nil)
		WriteJSONError(w, http.StatusUnauthorized, "Invalid user ID in context")
		return
	}

	var req CreateListingRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	listing, err := h.createUC.Execute(r.Context(), actor, req.toInput())
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to create listing")
		return
	}

	logger.Info("Listing draft created", port.Fields{"listing_id": listing.ID, "user_id": actor.UserID})
	RespondWithJSON(w, http.StatusCreated, h.presenter.listing(*listing))
}

// UpdateListing обрабатывает PATCH /api/v1/listings/{id}
func (h *ListingsHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "UpdateListing"})

	actor, _ := actorFromContext(r.Context())
	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	var req UpdateListingRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	listing, err := h.updateUC.Execute(r.Context(), actor, id, req.toPatch())
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to update listing")
		return
	}
	RespondWithJSON(w, http.StatusOK, h.presenter.listing(*listing))
}

// ChangeStatus обрабатывает POST /api/v1/listings/{id}/status
func (h *ListingsHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ChangeStatus"})

	actor, _ := actorFromContext(r.Context())
	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	var req ChangeStatusRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	listing, err := h.statusUC.Execute(r.Context(), actor, id, domain.ListingStatus(req.Status))
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to change listing status")
		return
	}

	logger.Info("Listing status changed", port.Fields{"listing_id": id, "status": listing.Status})
	RespondWithJSON(w, http.StatusOK, h.presenter.listing(*listing))
}

// DeleteListing обрабатывает DELETE /api/v1/listings/{id}
func (h *ListingsHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "DeleteListing"})

	actor, _ := actorFromContext(r.Context())
	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	if err := h.deleteUC.Execute(r.Context(), actor, id); err != nil {
		writeUseCaseError(w, logger, err, "Failed to delete listing")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMyListings обрабатывает GET /api/v1/me/listings
func (h *ListingsHandler) ListMyListings(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ListMyListings"})

	actor, _ := actorFromContext(r.Context())
	limit, err := limitParam(r)
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	status := domain.ListingStatus(r.URL.Query().Get("status"))
	page, err := h.listMyUC.Execute(r.Context(), actor, status, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to list listings")
		return
	}
	RespondWithJSON(w, http.StatusOK, mapPage(page, h.presenter.listing))
}

// ImportListing обрабатывает POST /api/v1/listings/import и /api/v1/admin/import
func (h *ListingsHandler) ImportListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ImportListing"})

	actor, _ := actorFromContext(r.Context())
	var req ImportListingRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}

	listing, err := h.importUC.Execute(r.Context(), actor, req.URL, domain.Category(req.Category))
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to import listing")
		return
	}
	RespondWithJSON(w, http.StatusCreated, h.presenter.listing(*listing))
}

// ListCategories обрабатывает GET /api/v1/categories
func (h *ListingsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, h.categoriesUC.Execute(r.Context()))
}

// GetListingSummary - внутренний маршрут для messaging-service, через шлюз не публикуется.
func (h *ListingsHandler) GetListingSummary(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetListingSummary"})

	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	summary, err := h.summaryUC.Execute(r.Context(), id)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to get listing summary")
		return
	}
	RespondWithJSON(w, http.StatusOK, summary)
}
