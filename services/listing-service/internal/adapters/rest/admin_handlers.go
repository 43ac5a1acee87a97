package rest

import (
	"net/http"
	"strconv"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"
	"marketplace/services/listing-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
)

// AdminHandler - консоль администратора: все статусы и аналитика.
type AdminHandler struct {
	searchUC    usecases_port.AdminSearchListingsUseCasePort
	analyticsUC usecases_port.GetListingAnalyticsUseCasePort
	presenter   listingPresenter
}

func NewAdminHandler(searchUC usecases_port.AdminSearchListingsUseCasePort,
	analyticsUC usecases_port.GetListingAnalyticsUseCasePort,
	imageURL ImageURLFunc) *AdminHandler {
	return &AdminHandler{
		searchUC:    searchUC,
		analyticsUC: analyticsUC,
		presenter:   newListingPresenter(imageURL),
	}
}

// SearchListings обрабатывает GET /api/v1/admin/listings
func (h *AdminHandler) SearchListings(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "AdminSearchListings"})

	base, err := searchQueryFromRequest(r)
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	query := usecases_port.AdminSearchQuery{
		SearchListingsQuery: base,
		Status:              r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("seller_id"); raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			writeUseCaseError(w, logger, domain.NewValidationError("seller_id", "must be a UUID"), "")
			return
		}
		query.SellerID = &sellerID
	}

	page, err := h.searchUC.Execute(r.Context(), query)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to search listings")
		return
	}
	RespondWithJSON(w, http.StatusOK, mapPage(page, h.presenter.listing))
}

// ListingAnalytics обрабатывает GET /api/v1/admin/analytics/listings?days=30
func (h *AdminHandler) ListingAnalytics(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ListingAnalytics"})

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		var err error
		if days, err = strconv.Atoi(raw); err != nil {
			writeUseCaseError(w, logger, domain.NewValidationError("days", "must be an integer"), "")
			return
		}
	}

	result, err := h.analyticsUC.Execute(r.Context(), days)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to build analytics")
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}
