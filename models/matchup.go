package models

import "time"

// MatchupState is the lifecycle of a matchup result. Locked is never stored:
// it is derived from the downstream matchup, see StateOf.
type MatchupState string

const (
	MatchupOpen    MatchupState = "open"
	MatchupDecided MatchupState = "decided"
	MatchupLocked  MatchupState = "locked"
)

// Matchup is one scheduled contest between two player slots within a round.
// MatchNumber is 1-based within the round and defines the bracket topology
// for elimination formats. Version backs optimistic concurrency control:
// every update must compare-and-swap on it.
type Matchup struct {
	ID           int              `json:"id" db:"id"`
	TournamentID int              `json:"tournament_id" db:"tournament_id"`
	Round        int              `json:"round" db:"round"`
	MatchNumber  int              `json:"match_number" db:"match_number"`
	Players      [2]BracketPlayer `json:"players" db:"players"`
	WinnerUUID   *string          `json:"winner,omitempty" db:"winner"`
	IsTie        bool             `json:"is_tie" db:"is_tie"`
	Version      int              `json:"version" db:"version"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// Decided reports whether a result has been recorded. A matchup holds at
// most one of {winner set, tie set}.
func (m *Matchup) Decided() bool {
	return m.WinnerUUID != nil || m.IsTie
}

// PlayerIndex returns the slot index of the given player, or -1.
func (m *Matchup) PlayerIndex(uuid string) int {
	if uuid == "" {
		return -1
	}
	for i, p := range m.Players {
		if p.UUID == uuid {
			return i
		}
	}
	return -1
}

// IsBye reports whether exactly one slot holds a real player.
func (m *Matchup) IsBye() bool {
	return m.Players[0].IsPlaceholder() != m.Players[1].IsPlaceholder()
}

// StateOf is the single transition source for the matchup lifecycle:
// Open (no result) -> Decided (winner or tie recorded) -> Locked (the
// downstream matchup has itself recorded a result). downstream may be nil
// when the matchup feeds no further round.
func StateOf(m *Matchup, downstream *Matchup) MatchupState {
	if !m.Decided() {
		return MatchupOpen
	}
	if downstream != nil && downstream.Decided() {
		return MatchupLocked
	}
	return MatchupDecided
}

// Round groups matchups sharing a round number. It is a view, not a stored
// entity.
type Round struct {
	Number   int        `json:"number"`
	Matchups []*Matchup `json:"matchups"`
}

// GroupRounds reconstructs the round-by-round view from a flat matchup list.
// Input is expected ordered by (round, match_number); output preserves it.
func GroupRounds(matchups []*Matchup) []Round {
	rounds := make([]Round, 0)
	byNumber := make(map[int]int)
	for _, m := range matchups {
		idx, ok := byNumber[m.Round]
		if !ok {
			rounds = append(rounds, Round{Number: m.Round})
			idx = len(rounds) - 1
			byNumber[m.Round] = idx
		}
		rounds[idx].Matchups = append(rounds[idx].Matchups, m)
	}
	return rounds
}
