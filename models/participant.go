package models

import "time"

// Participant — одобренная команда турнира, уникальна в паре
// (tournament_id, team_id). Удаляется только пока турнир draft и матчей нет.
type Participant struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	TeamID       int       `json:"team_id"`
	JoinedAt     time.Time `json:"joined_at"`

	Team *Team `json:"team,omitempty"`
}
