package models

import "time"

// RosterStatus mirrors the roster status ENUM in the DB.
type RosterStatus string

const (
	RosterActive     RosterStatus = "active"
	RosterWaitlisted RosterStatus = "waitlisted"
	RosterInactive   RosterStatus = "inactive"
)

// RosterEntry is one registered player of a tournament. Position is the
// organizer-maintained seeding order used by the ranked and seeded pairing
// modes.
type RosterEntry struct {
	ID           int          `json:"id" db:"id"`
	TournamentID int          `json:"tournament_id" db:"tournament_id"`
	PlayerUUID   string       `json:"player_uuid" db:"player_uuid"`
	Name         string       `json:"name" db:"name"`
	AccountType  AccountType  `json:"account_type" db:"account_type"`
	Position     int          `json:"position" db:"position"`
	Status       RosterStatus `json:"status" db:"status"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// BracketPlayer converts the roster row into a slot value with a zeroed
// score.
func (e *RosterEntry) BracketPlayer() BracketPlayer {
	score := 0
	return BracketPlayer{
		UUID:        e.PlayerUUID,
		Name:        e.Name,
		AccountType: e.AccountType,
		Score:       &score,
	}
}
