package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/UrThings/cs-ufe/models"
)

const settingsTable = "tournament_settings"

// ErrSettingsNotFound — строки настроек нет. Для резолвера настроек это
// штатная ситуация (применяются дефолты), в отличие от отсутствия самой
// таблицы, которое маппится в ErrMigrationsRequired.
var ErrSettingsNotFound = errors.New("tournament settings not found")

type SettingsRepository interface {
	Get(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentSettings, error)
	Upsert(ctx context.Context, exec SQLExecutor, settings *models.TournamentSettings) error
}

type postgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) SettingsRepository {
	return &postgresSettingsRepository{db: db}
}

func (r *postgresSettingsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSettingsRepository) Get(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentSettings, error) {
	if err := guardOptionalTable(settingsTable); err != nil {
		return nil, err
	}

	query := `
		SELECT tournament_id, team_limit, match_best_of, final_best_of, updated_at
		FROM tournament_settings
		WHERE tournament_id = $1`

	s := &models.TournamentSettings{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID).Scan(
		&s.TournamentID,
		&s.TeamLimit,
		&s.MatchBestOf,
		&s.FinalBestOf,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, classifyOptionalTableError(err, settingsTable)
	}
	return s, nil
}

func (r *postgresSettingsRepository) Upsert(ctx context.Context, exec SQLExecutor, settings *models.TournamentSettings) error {
	if err := guardOptionalTable(settingsTable); err != nil {
		return err
	}

	query := `
		INSERT INTO tournament_settings (tournament_id, team_limit, match_best_of, final_best_of, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (tournament_id)
		DO UPDATE SET
			team_limit = EXCLUDED.team_limit,
			match_best_of = EXCLUDED.match_best_of,
			final_best_of = EXCLUDED.final_best_of,
			updated_at = NOW()`

	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		settings.TournamentID,
		settings.TeamLimit,
		settings.MatchBestOf,
		settings.FinalBestOf,
	)
	return classifyOptionalTableError(err, settingsTable)
}
