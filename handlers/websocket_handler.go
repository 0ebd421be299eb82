package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dkhalitov/bracket-engine/brackets"
	"github.com/dkhalitov/bracket-engine/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the deployed frontend origins.
		return true
	},
}

type WebSocketHandler struct {
	hub               *brackets.Hub
	tournamentService services.TournamentService
	logger            *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, tournamentService services.TournamentService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:               hub,
		tournamentService: tournamentService,
		logger:            logger,
	}
}

// ServeWs subscribes a client to live updates for one tournament via
// GET /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if _, err := h.tournamentService.GetByID(r.Context(), tournamentID); err != nil {
		serviceErrorResponse(w, h.logger, err, nil)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Error("websocket upgrade failed",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: brackets.RoomID(tournamentID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Debug("websocket client subscribed",
		slog.Int("tournament_id", tournamentID), slog.String("room", client.Room))
}
