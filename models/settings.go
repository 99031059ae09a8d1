package models

import "time"

// TournamentSettings — one-to-one с турниром. Отсутствующая строка означает
// дефолты (DefaultTournamentSettings), это не ошибка.
type TournamentSettings struct {
	TournamentID int       `json:"tournament_id"`
	TeamLimit    int       `json:"team_limit"`
	MatchBestOf  int       `json:"match_best_of"`
	FinalBestOf  int       `json:"final_best_of"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func DefaultTournamentSettings(tournamentID int) TournamentSettings {
	return TournamentSettings{
		TournamentID: tournamentID,
		TeamLimit:    16,
		MatchBestOf:  1,
		FinalBestOf:  1,
	}
}
