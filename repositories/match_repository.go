package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/UrThings/cs-ufe/models"
)

var (
	ErrMatchNotFound         = errors.New("match not found")
	ErrMatchPositionConflict = errors.New("match position already taken in this round")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	CountByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error)
	ListByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) ([]*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	RecordResult(ctx context.Context, exec SQLExecutor, id int, winnerTeamID int, homeScore, awayScore *int, completedAt time.Time) error
	Count(ctx context.Context) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round, position, home_team_id, away_team_id,
	home_score, away_score, winner_team_id, status, scheduled_at, completed_at, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches (
			tournament_id, round, position, home_team_id, away_team_id,
			winner_team_id, status, scheduled_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.TournamentID,
		match.Round,
		match.Position,
		match.HomeTeamID,
		match.AwayTeamID,
		match.WinnerTeamID,
		match.Status,
		match.ScheduledAt,
		match.CompletedAt,
	).Scan(&match.ID, &match.CreatedAt)

	if err != nil && isUniqueViolation(err) {
		return ErrMatchPositionConflict
	}
	return err
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`

	match := &models.Match{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&match.ID, &match.TournamentID, &match.Round, &match.Position,
		&match.HomeTeamID, &match.AwayTeamID, &match.HomeScore, &match.AwayScore,
		&match.WinnerTeamID, &match.Status, &match.ScheduledAt, &match.CompletedAt, &match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) CountByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error) {
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND round = $2`,
		tournamentID, round,
	).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND round = $2
		ORDER BY position ASC`

	return r.listMatches(ctx, exec, query, tournamentID, round)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		ORDER BY round ASC, position ASC`

	return r.listMatches(ctx, exec, query, tournamentID)
}

func (r *postgresMatchRepository) listMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match := &models.Match{}
		if err := rows.Scan(
			&match.ID, &match.TournamentID, &match.Round, &match.Position,
			&match.HomeTeamID, &match.AwayTeamID, &match.HomeScore, &match.AwayScore,
			&match.WinnerTeamID, &match.Status, &match.ScheduledAt, &match.CompletedAt, &match.CreatedAt,
		); err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) RecordResult(ctx context.Context, exec SQLExecutor, id int, winnerTeamID int, homeScore, awayScore *int, completedAt time.Time) error {
	query := `
		UPDATE matches
		SET winner_team_id = $1, home_score = $2, away_score = $3, status = $4, completed_at = $5
		WHERE id = $6`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		winnerTeamID, homeScore, awayScore, models.MatchCompleted, completedAt, id,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}
