package models

import "time"

// ReportStatus mirrors the score report status ENUM in the DB.
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportAccepted ReportStatus = "accepted"
	ReportDisputed ReportStatus = "disputed"
)

// PlayerScore is one side's claimed score inside a report.
type PlayerScore struct {
	PlayerUUID string `json:"player_uuid"`
	Score      int    `json:"score"`
}

// ScoreReport is a participant's self-submitted claim of a match outcome.
// At most one pending report may exist per (match, reporter); once accepted
// it is immutable and kept as historical record.
type ScoreReport struct {
	ID           string        `json:"id" db:"id"`
	MatchID      int           `json:"match_id" db:"match_id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	ReporterID   string        `json:"reporter_id" db:"reporter_id"`
	Scores       []PlayerScore `json:"scores" db:"scores"`
	WinnerUUID   *string       `json:"winner,omitempty" db:"winner"`
	IsTie        bool          `json:"is_tie" db:"is_tie"`
	Status       ReportStatus  `json:"status" db:"status"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// ScoreFor returns the claimed score for a player, or nil if absent.
func (r *ScoreReport) ScoreFor(playerUUID string) *int {
	for _, s := range r.Scores {
		if s.PlayerUUID == playerUUID {
			score := s.Score
			return &score
		}
	}
	return nil
}
