package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	TournamentDraft    TournamentStatus = "draft"
	TournamentActive   TournamentStatus = "active"
	TournamentFinished TournamentStatus = "finished"
)

// TournamentFormat — формат сетки. Движок поддерживает только single elimination.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
)

type Tournament struct {
	ID             int              `json:"id"`
	Title          string           `json:"title"`
	Slug           string           `json:"slug"`
	Format         TournamentFormat `json:"format"`
	Status         TournamentStatus `json:"status"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	Headliner      *string          `json:"headliner,omitempty"`
	ChampionTeamID *int             `json:"champion_team_id,omitempty"`
	SeededAt       *time.Time       `json:"seeded_at,omitempty"`
	FinishedAt     *time.Time       `json:"finished_at,omitempty"`
	LogoKey        *string          `json:"-"`
	LogoURL        *string          `json:"logo_url,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую).
	Settings     *TournamentSettings `json:"settings,omitempty"`
	Participants []Participant       `json:"participants,omitempty"`
	Matches      []Match             `json:"matches,omitempty"`
}
