package models

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
	MatchCanceled  MatchStatus = "canceled"
)

// Match — узел сетки. AwayTeamID == nil означает bye: такой матч создаётся
// сразу completed с winner = home. Пара (round, position) уникальна внутри
// турнира, строки никогда не удаляются (append-only история сетки).
type Match struct {
	ID           int         `json:"id"`
	TournamentID int         `json:"tournament_id"`
	Round        int         `json:"round"`
	Position     int         `json:"position"`
	HomeTeamID   int         `json:"home_team_id"`
	AwayTeamID   *int        `json:"away_team_id,omitempty"`
	HomeScore    *int        `json:"home_score,omitempty"`
	AwayScore    *int        `json:"away_score,omitempty"`
	WinnerTeamID *int        `json:"winner_team_id,omitempty"`
	Status       MatchStatus `json:"status"`
	ScheduledAt  time.Time   `json:"scheduled_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// IsBye reports whether the match was an automatic pass for the home team.
func (m *Match) IsBye() bool {
	return m.AwayTeamID == nil
}
