package handlers

import (
	"net/http"

	"github.com/terrabuild/terrafusion/backend/internal/report"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// ReportHandler handles roll-level report endpoints
type ReportHandler struct {
	reports *report.Service
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *report.Service, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  log,
	}
}

// Summary returns roll-wide totals and averages
// GET /api/reports/summary
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reports.Summary(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build summary report")
		respondError(w, http.StatusInternalServerError, "Failed to build summary report")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// ByRegion returns valuations bucketed by region
// GET /api/reports/regions
func (h *ReportHandler) ByRegion(w http.ResponseWriter, r *http.Request) {
	result, err := h.reports.ByRegion(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build regional report")
		respondError(w, http.StatusInternalServerError, "Failed to build regional report")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ByPropertyType returns valuations bucketed by property type
// GET /api/reports/property-types?region=
func (h *ReportHandler) ByPropertyType(w http.ResponseWriter, r *http.Request) {
	result, err := h.reports.ByPropertyType(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to build property type report")
		respondError(w, http.StatusInternalServerError, "Failed to build property type report")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
