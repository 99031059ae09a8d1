package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/UrThings/cs-ufe/models"
)

const joinRequestTable = "tournament_join_requests"

var (
	ErrJoinRequestNotFound = errors.New("join request not found")
	ErrJoinRequestConflict = errors.New("join request already exists for this team")
)

type JoinRequestRepository interface {
	Create(ctx context.Context, exec SQLExecutor, request *models.TournamentJoinRequest) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentJoinRequest, error)
	GetByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.TournamentJoinRequest, error)
	ResetToPending(ctx context.Context, exec SQLExecutor, id, requestedByUserID int) error
	MarkApproved(ctx context.Context, exec SQLExecutor, id, reviewedByUserID int) error
	MarkRejected(ctx context.Context, exec SQLExecutor, tournamentID, teamID, reviewedByUserID int, note string) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentJoinRequest, error)
}

type postgresJoinRequestRepository struct {
	db *sql.DB
}

func NewPostgresJoinRequestRepository(db *sql.DB) JoinRequestRepository {
	return &postgresJoinRequestRepository{db: db}
}

func (r *postgresJoinRequestRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const joinRequestColumns = `
	id, tournament_id, team_id, requested_by_user_id, status,
	review_note, reviewed_by_user_id, requested_at, reviewed_at`

func (r *postgresJoinRequestRepository) Create(ctx context.Context, exec SQLExecutor, request *models.TournamentJoinRequest) error {
	if err := guardOptionalTable(joinRequestTable); err != nil {
		return err
	}

	query := `
		INSERT INTO tournament_join_requests (tournament_id, team_id, requested_by_user_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, requested_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		request.TournamentID,
		request.TeamID,
		request.RequestedByUserID,
		request.Status,
	).Scan(&request.ID, &request.RequestedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrJoinRequestConflict
		}
		return classifyOptionalTableError(err, joinRequestTable)
	}
	return nil
}

func (r *postgresJoinRequestRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentJoinRequest, error) {
	if err := guardOptionalTable(joinRequestTable); err != nil {
		return nil, err
	}

	query := `SELECT` + joinRequestColumns + ` FROM tournament_join_requests WHERE id = $1`
	return r.scanRequest(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresJoinRequestRepository) GetByTournamentAndTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.TournamentJoinRequest, error) {
	if err := guardOptionalTable(joinRequestTable); err != nil {
		return nil, err
	}

	query := `SELECT` + joinRequestColumns + `
		FROM tournament_join_requests
		WHERE tournament_id = $1 AND team_id = $2`
	return r.scanRequest(r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, teamID))
}

func (r *postgresJoinRequestRepository) ResetToPending(ctx context.Context, exec SQLExecutor, id, requestedByUserID int) error {
	query := `
		UPDATE tournament_join_requests
		SET status = $1,
		    requested_by_user_id = $2,
		    reviewed_by_user_id = NULL,
		    review_note = NULL,
		    reviewed_at = NULL,
		    requested_at = NOW()
		WHERE id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.JoinRequestPending, requestedByUserID, id)
	if err != nil {
		return classifyOptionalTableError(err, joinRequestTable)
	}
	return checkAffectedRows(result, ErrJoinRequestNotFound)
}

func (r *postgresJoinRequestRepository) MarkApproved(ctx context.Context, exec SQLExecutor, id, reviewedByUserID int) error {
	query := `
		UPDATE tournament_join_requests
		SET status = $1, reviewed_by_user_id = $2, reviewed_at = NOW()
		WHERE id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.JoinRequestApproved, reviewedByUserID, id)
	if err != nil {
		return classifyOptionalTableError(err, joinRequestTable)
	}
	return checkAffectedRows(result, ErrJoinRequestNotFound)
}

func (r *postgresJoinRequestRepository) MarkRejected(ctx context.Context, exec SQLExecutor, tournamentID, teamID, reviewedByUserID int, note string) error {
	// Нет строки — нечего отклонять; это не ошибка для вызывающего кода
	// (removeParticipant зовёт вслепую для пары турнир+команда).
	query := `
		UPDATE tournament_join_requests
		SET status = $1, reviewed_by_user_id = $2, review_note = $3, reviewed_at = NOW()
		WHERE tournament_id = $4 AND team_id = $5`

	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		models.JoinRequestRejected, reviewedByUserID, note, tournamentID, teamID,
	)
	return classifyOptionalTableError(err, joinRequestTable)
}

func (r *postgresJoinRequestRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentJoinRequest, error) {
	if err := guardOptionalTable(joinRequestTable); err != nil {
		return nil, err
	}

	query := `SELECT` + joinRequestColumns + `
		FROM tournament_join_requests
		WHERE tournament_id = $1
		ORDER BY requested_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, classifyOptionalTableError(err, joinRequestTable)
	}
	defer rows.Close()

	requests := make([]*models.TournamentJoinRequest, 0)
	for rows.Next() {
		request := &models.TournamentJoinRequest{}
		if err := rows.Scan(
			&request.ID,
			&request.TournamentID,
			&request.TeamID,
			&request.RequestedByUserID,
			&request.Status,
			&request.ReviewNote,
			&request.ReviewedByUserID,
			&request.RequestedAt,
			&request.ReviewedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func (r *postgresJoinRequestRepository) scanRequest(row *sql.Row) (*models.TournamentJoinRequest, error) {
	request := &models.TournamentJoinRequest{}
	err := row.Scan(
		&request.ID,
		&request.TournamentID,
		&request.TeamID,
		&request.RequestedByUserID,
		&request.Status,
		&request.ReviewNote,
		&request.ReviewedByUserID,
		&request.RequestedAt,
		&request.ReviewedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJoinRequestNotFound
		}
		return nil, classifyOptionalTableError(err, joinRequestTable)
	}
	return request, nil
}
