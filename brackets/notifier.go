package brackets

import (
	"strconv"

	"github.com/dkhalitov/bracket-engine/models"
)

// Message types broadcast to tournament rooms.
const (
	MessageMatchupUpdated = "MATCHUP_UPDATED"
	MessageRoundGenerated = "ROUND_GENERATED"
	MessageTournamentDone = "TOURNAMENT_COMPLETED"
)

// Notifier tells observers that a matchup or round changed. Calls happen
// after the state write commits and are strictly fire-and-forget: a failing
// notifier must never block or roll back engine state.
type Notifier interface {
	MatchupChanged(tournamentID int, matchup *models.Matchup)
	RoundGenerated(tournamentID int, round int, matchups []*models.Matchup)
	TournamentCompleted(tournamentID int)
}

// RoomID maps a tournament to its hub room.
func RoomID(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

type hubNotifier struct {
	hub *Hub
}

// NewHubNotifier adapts the websocket hub to the Notifier interface.
func NewHubNotifier(hub *Hub) Notifier {
	return &hubNotifier{hub: hub}
}

func (n *hubNotifier) MatchupChanged(tournamentID int, matchup *models.Matchup) {
	room := RoomID(tournamentID)
	n.hub.BroadcastToRoom(room, WebSocketMessage{
		Type:    MessageMatchupUpdated,
		Payload: matchup,
		RoomID:  room,
	})
}

func (n *hubNotifier) RoundGenerated(tournamentID int, round int, matchups []*models.Matchup) {
	room := RoomID(tournamentID)
	n.hub.BroadcastToRoom(room, WebSocketMessage{
		Type: MessageRoundGenerated,
		Payload: map[string]interface{}{
			"round":    round,
			"matchups": matchups,
		},
		RoomID: room,
	})
}

func (n *hubNotifier) TournamentCompleted(tournamentID int) {
	room := RoomID(tournamentID)
	n.hub.BroadcastToRoom(room, WebSocketMessage{
		Type:    MessageTournamentDone,
		Payload: map[string]int{"tournament_id": tournamentID},
		RoomID:  room,
	})
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) MatchupChanged(int, *models.Matchup)        {}
func (NopNotifier) RoundGenerated(int, int, []*models.Matchup) {}
func (NopNotifier) TournamentCompleted(int)                    {}
