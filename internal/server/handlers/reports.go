package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/foliolens/foliolens/internal/core"
	apperrors "github.com/foliolens/foliolens/internal/errors"
)

// ReportLister exposes the indexed report history.
type ReportLister interface {
	ListReports(ctx context.Context, limit int) ([]core.ReportRecord, error)
}

// PreferenceReader exposes stored questionnaire records.
type PreferenceReader interface {
	LatestPreferences(ctx context.Context) (*core.PreferenceRecord, error)
}

// ReportsHandler serves the report index from the local store.
type ReportsHandler struct {
	Reports     ReportLister
	Preferences PreferenceReader
}

// ReportListResponse wraps the report index rows.
type ReportListResponse struct {
	Reports []core.ReportRecord `json:"reports"`
	Count   int                 `json:"count"`
}

// ListReports handles GET requests for the report index.
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Reports == nil {
		respondWithError(w, r, apperrors.NewInternalError("report store not configured"))
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			respondWithError(w, r, apperrors.NewInvalidInputError("limit must be an integer between 1 and 200"))
			return
		}
		limit = parsed
	}

	records, err := h.Reports.ListReports(r.Context(), limit)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list reports"))
		return
	}
	if records == nil {
		records = []core.ReportRecord{}
	}

	response := ReportListResponse{
		Reports: records,
		Count:   len(records),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// LatestPreferences handles GET requests for the most recent questionnaire record.
func (h *ReportsHandler) LatestPreferences(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Preferences == nil {
		respondWithError(w, r, apperrors.NewInternalError("preference store not configured"))
		return
	}

	record, err := h.Preferences.LatestPreferences(r.Context())
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load preferences"))
		return
	}
	if record == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("no preferences have been collected yet"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(record)
}
