package models

import (
	"encoding/json"
	"time"
)

// TournamentFormat mirrors the format ENUM in the DB.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single"
	FormatSwiss             TournamentFormat = "swiss"
	FormatRoundRobin        TournamentFormat = "robin"
)

// TournamentStatus mirrors the status ENUM in the DB.
type TournamentStatus string

const (
	StatusInitialization TournamentStatus = "initialization"
	StatusStarted        TournamentStatus = "started"
	StatusCompleted      TournamentStatus = "completed"
)

// WinCondition selects how a Swiss tournament ends.
type WinCondition string

const (
	WinConditionFixedRounds WinCondition = "fixed_rounds"
	WinConditionPointsToWin WinCondition = "points_to_win"
)

// TournamentSettings carries the format-specific knobs stored as JSON.
// Immutable once the tournament has started.
type TournamentSettings struct {
	WinCondition     WinCondition `json:"win_condition,omitempty"`
	PointsToWin      *int         `json:"points_to_win,omitempty"`
	AutoWinScore     *int         `json:"auto_win_score,omitempty"`
	SeedGroupSize    int          `json:"seed_group_size,omitempty"`
	Legs             int          `json:"legs,omitempty"` // round robin: 1 or 2, default 2
	AutoAcceptAgreed bool         `json:"auto_accept_agreed,omitempty"`
}

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Format      TournamentFormat `json:"format" db:"format"`
	Status      TournamentStatus `json:"status" db:"status"`
	MaxRounds   *int             `json:"max_rounds,omitempty" db:"max_rounds"`
	OrganizerID string           `json:"organizer_id" db:"organizer_id"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`

	SettingsJSON *string `json:"-" db:"settings_json"`

	// Parsed settings, populated on demand, not stored directly.
	parsedSettings *TournamentSettings
}

// GetSettings unmarshals SettingsJSON, falling back to defaults when the
// column is empty or malformed.
func (t *Tournament) GetSettings() TournamentSettings {
	if t.parsedSettings != nil {
		return *t.parsedSettings
	}
	settings := TournamentSettings{Legs: 2}
	if t.SettingsJSON != nil && *t.SettingsJSON != "" {
		if err := json.Unmarshal([]byte(*t.SettingsJSON), &settings); err == nil {
			if settings.Legs != 1 && settings.Legs != 2 {
				settings.Legs = 2
			}
		}
	}
	t.parsedSettings = &settings
	return settings
}

// SetSettings serializes settings back onto the row.
func (t *Tournament) SetSettings(settings TournamentSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	s := string(raw)
	t.SettingsJSON = &s
	t.parsedSettings = &settings
	return nil
}
