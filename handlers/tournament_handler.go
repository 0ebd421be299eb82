package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dkhalitov/bracket-engine/middleware"
	"github.com/dkhalitov/bracket-engine/models"
	"github.com/dkhalitov/bracket-engine/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	bracketService    services.BracketService
	roundService      services.RoundService
	logger            *slog.Logger
}

func NewTournamentHandler(
	tournamentService services.TournamentService,
	bracketService services.BracketService,
	roundService services.RoundService,
	logger *slog.Logger,
) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		bracketService:    bracketService,
		roundService:      roundService,
		logger:            logger,
	}
}

type tournamentInput struct {
	Name      string                    `json:"name"`
	Format    models.TournamentFormat   `json:"format"`
	MaxRounds *int                      `json:"max_rounds,omitempty"`
	Settings  models.TournamentSettings `json:"settings"`
}

// CreateHandler handles POST /tournaments.
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input tournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), services.CreateTournamentParams{
		Name:        input.Name,
		Format:      input.Format,
		MaxRounds:   input.MaxRounds,
		Settings:    input.Settings,
		OrganizerID: middleware.CallerIDFromContext(r.Context()),
	})
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament})
}

// GetByIDHandler handles GET /tournaments/{tournamentID}.
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.tournamentService.GetByID(r.Context(), id)
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament})
}

// ListHandler handles GET /tournaments with an optional ?status= filter.
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var status *models.TournamentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		value := models.TournamentStatus(s)
		status = &value
	}
	tournaments, err := h.tournamentService.List(r.Context(), status)
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments})
}

// UpdateHandler handles PUT /tournaments/{tournamentID}.
func (h *TournamentHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var input tournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.UpdateConfig(r.Context(), id, services.CreateTournamentParams{
		Name:      input.Name,
		Format:    input.Format,
		MaxRounds: input.MaxRounds,
		Settings:  input.Settings,
	})
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament})
}

type registerPlayerInput struct {
	PlayerUUID  string             `json:"player_uuid,omitempty"`
	Name        string             `json:"name"`
	AccountType models.AccountType `json:"account_type,omitempty"`
	Position    int                `json:"position,omitempty"`
}

// RegisterPlayerHandler handles POST /tournaments/{tournamentID}/players.
func (h *TournamentHandler) RegisterPlayerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var input registerPlayerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	entry, err := h.tournamentService.RegisterPlayer(r.Context(), services.RegisterPlayerParams{
		TournamentID: id,
		PlayerUUID:   input.PlayerUUID,
		Name:         input.Name,
		AccountType:  input.AccountType,
		Position:     input.Position,
	})
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"entry": entry})
}

type buildBracketInput struct {
	Mode services.PairingMode `json:"mode,omitempty"`
}

// BuildBracketHandler handles POST /tournaments/{tournamentID}/bracket.
func (h *TournamentHandler) BuildBracketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	input := buildBracketInput{Mode: services.PairingRandom}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, err)
			return
		}
	}

	matchups, err := h.bracketService.BuildInitialBracket(r.Context(), id, input.Mode)
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matchups": matchups})
}

// GetBracketHandler handles GET /tournaments/{tournamentID}/bracket.
func (h *TournamentHandler) GetBracketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	view, err := h.bracketService.GetBracket(r.Context(), id)
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// StartNextRoundHandler handles POST /tournaments/{tournamentID}/rounds.
func (h *TournamentHandler) StartNextRoundHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var result *services.StartNextRoundResult
	err = withConflictRetry(func() error {
		var roundErr error
		result, roundErr = h.roundService.StartNextRound(r.Context(), id)
		return roundErr
	})
	if err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// CompleteHandler handles POST /tournaments/{tournamentID}/complete.
func (h *TournamentHandler) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.tournamentService.Complete(r.Context(), id); err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"status": models.StatusCompleted})
}
