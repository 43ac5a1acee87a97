package rest

import (
	"net/http"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"
	"marketplace/services/messaging-service/internal/core/port/usecases_port"
)

type ReportsHandler struct {
	createUC     usecases_port.CreateReportUseCasePort
	listMyUC     usecases_port.ListMyReportsUseCasePort
	listUC       usecases_port.ListReportsUseCasePort
	getUC        usecases_port.GetReportUseCasePort
	transitionUC usecases_port.TransitionReportUseCasePort
}

type ReportsUseCases struct {
	Create     usecases_port.CreateReportUseCasePort
	ListMy     usecases_port.ListMyReportsUseCasePort
	List       usecases_port.ListReportsUseCasePort
	Get        usecases_port.GetReportUseCasePort
	Transition usecases_port.TransitionReportUseCasePort
}

func NewReportsHandler(uc ReportsUseCases) *ReportsHandler {
	return &ReportsHandler{
		createUC:     uc.Create,
		listMyUC:     uc.ListMy,
		listUC:       uc.List,
		getUC:        uc.Get,
		transitionUC: uc.Transition,
	}
}

// CreateReport обрабатывает POST /api/v1/reports
func (h *ReportsHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateReport"})
	actor, _ := actorFromContext(r.Context())

	var req createReportRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	report, err := h.createUC.Execute(r.Context(), actor, domain.ReportInput{
		TargetType: domain.ReportTargetType(req.TargetType),
		TargetID:   req.TargetID,
		Reason:     domain.ReportReason(req.Reason),
		Details:    req.Details,
	})
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to create report")
		return
	}
	RespondWithJSON(w, http.StatusCreated, report)
}

// ListMyReports обрабатывает GET /api/v1/reports
func (h *ReportsHandler) ListMyReports(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ListMyReports"})
	actor, _ := actorFromContext(r.Context())

	limit, err := intParam(r, "limit")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	page, err := h.listMyUC.Execute(r.Context(), actor, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to list reports")
		return
	}
	RespondWithJSON(w, http.StatusOK, page)
}

// ListReports обрабатывает GET /api/v1/admin/reports?status=
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "AdminListReports"})
	actor, _ := actorFromContext(r.Context())

	limit, err := intParam(r, "limit")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	q := r.URL.Query()
	page, err := h.listUC.Execute(r.Context(), actor, domain.ReportStatus(q.Get("status")), q.Get("cursor"), limit)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to list reports")
		return
	}
	RespondWithJSON(w, http.StatusOK, page)
}

// GetReport обрабатывает GET /api/v1/admin/reports/{id}
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "AdminGetReport"})
	actor, _ := actorFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	details, err := h.getUC.Execute(r.Context(), actor, id)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to get report")
		return
	}
	RespondWithJSON(w, http.StatusOK, details)
}

// TransitionReport обрабатывает POST /api/v1/admin/reports/{id}/status
func (h *ReportsHandler) TransitionReport(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "AdminTransitionReport"})
	actor, _ := actorFromContext(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	var req transitionReportRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeUseCaseError(w, logger, err, "")
		return
	}
	report, err := h.transitionUC.Execute(r.Context(), actor, id, domain.ReportStatus(req.Status), req.Note)
	if err != nil {
		writeUseCaseError(w, logger, err, "Failed to update report")
		return
	}
	RespondWithJSON(w, http.StatusOK, report)
}
