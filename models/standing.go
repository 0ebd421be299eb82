package models

// Standing is a player's accumulated record across finalized matchups.
type Standing struct {
	Player BracketPlayer `json:"player"`
	Wins   int           `json:"wins"`
	Losses int           `json:"losses"`
	Ties   int           `json:"ties"`
	Points int           `json:"points"`
}

// TournamentBracket is the full read view handed to callers: configuration,
// the round-by-round matchup grid and current standings.
type TournamentBracket struct {
	Tournament *Tournament   `json:"tournament"`
	Rounds     []Round       `json:"rounds"`
	Standings  []Standing    `json:"standings,omitempty"`
	Roster     []RosterEntry `json:"roster,omitempty"`
}
