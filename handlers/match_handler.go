package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dkhalitov/bracket-engine/models"
	"github.com/dkhalitov/bracket-engine/services"
)

type MatchHandler struct {
	resultService services.ResultService
	logger        *slog.Logger
}

func NewMatchHandler(resultService services.ResultService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{resultService: resultService, logger: logger}
}

type declareResultInput struct {
	WinnerUUID *string              `json:"winner_uuid,omitempty"`
	IsTie      bool                 `json:"is_tie,omitempty"`
	Scores     []models.PlayerScore `json:"scores,omitempty"`
}

// DeclareResultHandler handles PUT /matches/{matchID}/result. An empty
// outcome (no winner, no tie) clears a previously recorded result.
func (h *MatchHandler) DeclareResultHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var input declareResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	var matchup *models.Matchup
	err = withConflictRetry(func() error {
		var declareErr error
		matchup, declareErr = h.resultService.DeclareResult(r.Context(), services.DeclareResultParams{
			MatchID:    matchID,
			WinnerUUID: input.WinnerUUID,
			IsTie:      input.IsTie,
			Scores:     input.Scores,
		})
		return declareErr
	})
	if err != nil {
		serviceErrorResponse(w, h.logger, err, jsonResponse{"matchup": matchup})
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matchup": matchup})
}
