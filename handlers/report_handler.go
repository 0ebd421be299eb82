package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dkhalitov/bracket-engine/middleware"
	"github.com/dkhalitov/bracket-engine/models"
	"github.com/dkhalitov/bracket-engine/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var errInvalidReportID = errors.New("invalid reportID parameter")

type ReportHandler struct {
	reportService services.ReportService
	logger        *slog.Logger
}

func NewReportHandler(reportService services.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reportService: reportService, logger: logger}
}

type reportInput struct {
	Scores     []models.PlayerScore `json:"scores"`
	WinnerUUID *string              `json:"winner_uuid,omitempty"`
	IsTie      bool                 `json:"is_tie,omitempty"`
}

// SubmitHandler handles POST /matches/{matchID}/reports. The reporter is
// taken from the token, never from the body.
func (h *ReportHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var input reportInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	report, err := h.reportService.Submit(r.Context(), services.SubmitReportParams{
		MatchID:    matchID,
		ReporterID: middleware.CallerIDFromContext(r.Context()),
		Scores:     input.Scores,
		WinnerUUID: input.WinnerUUID,
		IsTie:      input.IsTie,
	})
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"report": report})
}

// ListByMatchHandler handles GET /matches/{matchID}/reports.
func (h *ReportHandler) ListByMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	view, err := h.reportService.ListByMatch(r.Context(), matchID)
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// EditHandler handles PUT /reports/{reportID}.
func (h *ReportHandler) EditHandler(w http.ResponseWriter, r *http.Request) {
	reportID, err := reportIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var input reportInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	report, err := h.reportService.Edit(r.Context(), reportID, middleware.CallerIDFromContext(r.Context()), services.SubmitReportParams{
		Scores:     input.Scores,
		WinnerUUID: input.WinnerUUID,
		IsTie:      input.IsTie,
	})
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"report": report})
}

// DeleteHandler handles DELETE /reports/{reportID}.
func (h *ReportHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	reportID, err := reportIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.reportService.Delete(r.Context(), reportID, middleware.CallerIDFromContext(r.Context())); err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptHandler handles POST /reports/{reportID}/accept.
func (h *ReportHandler) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	reportID, err := reportIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var matchup *models.Matchup
	err = withConflictRetry(func() error {
		var acceptErr error
		matchup, acceptErr = h.reportService.Accept(r.Context(), reportID)
		return acceptErr
	})
	if err != nil {
		serviceErrorResponse(w, h.logger, err, jsonResponse{"matchup": matchup})
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matchup": matchup})
}

func reportIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "reportID")
	if _, err := uuid.Parse(id); err != nil {
		return "", errInvalidReportID
	}
	return id, nil
}
