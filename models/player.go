package models

// AccountType distinguishes how a bracket slot was filled.
type AccountType string

const (
	AccountLoggedIn    AccountType = "logged_in"
	AccountAnonymous   AccountType = "anonymous"
	AccountPlaceholder AccountType = "placeholder"
	AccountGenerated   AccountType = "generated"
)

// BracketPlayer is a slot value inside a matchup, not a standalone row.
// An empty UUID marks a placeholder slot (bye opponent or a not-yet-known
// winner of an earlier match).
type BracketPlayer struct {
	UUID        string      `json:"uuid"`
	Name        string      `json:"name"`
	AccountType AccountType `json:"account_type"`
	Score       *int        `json:"score,omitempty"`
}

func (p BracketPlayer) IsPlaceholder() bool {
	return p.UUID == ""
}

// PlaceholderPlayer returns the canonical empty slot value.
func PlaceholderPlayer() BracketPlayer {
	return BracketPlayer{AccountType: AccountPlaceholder}
}
