package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UrThings/cs-ufe/brackets"
	"github.com/UrThings/cs-ufe/models"
	"github.com/UrThings/cs-ufe/repositories"
)

const removedByAdminNote = "removed from the tournament roster by an administrator"

// RegistrationService реализует workflow заявок на участие:
// NONE → PENDING → {APPROVED | REJECTED}, REJECTED → PENDING при повторной
// подаче. Каждая операция выполняется одной сериализуемой транзакцией.
type RegistrationService struct {
	joinRequestRepo repositories.JoinRequestRepository
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	teamRepo        repositories.TeamRepository
	settingsRepo    repositories.SettingsRepository
	matchRepo       repositories.MatchRepository
	txRunner        TxRunner
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewRegistrationService(
	joinRequestRepo repositories.JoinRequestRepository,
	participantRepo repositories.ParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	settingsRepo repositories.SettingsRepository,
	matchRepo repositories.MatchRepository,
	txRunner TxRunner,
	hub *brackets.Hub,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		joinRequestRepo: joinRequestRepo,
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		teamRepo:        teamRepo,
		settingsRepo:    settingsRepo,
		matchRepo:       matchRepo,
		txRunner:        txRunner,
		hub:             hub,
		logger:          logger,
	}
}

// RequestJoin подаёт заявку команды на турнир от имени её капитана.
// Повторная подача при pending даёт конфликт, при approved идемпотентно
// возвращает существующую заявку, при rejected переводит её обратно в pending.
func (s *RegistrationService) RequestJoin(ctx context.Context, userID, tournamentID, teamID int) (*models.TournamentJoinRequest, error) {
	var result *models.TournamentJoinRequest
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		team, err := s.teamRepo.GetByID(ctx, exec, teamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if team.OwnerID != userID {
			return ErrCaptainActionForbidden
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.TournamentDraft {
			return ErrRegistrationNotOpen
		}

		// Уже одобренная команда: заявка возвращается как есть, новая не
		// создаётся.
		_, err = s.participantRepo.GetByTournamentAndTeam(ctx, exec, tournamentID, teamID)
		if err == nil {
			existing, reqErr := s.joinRequestRepo.GetByTournamentAndTeam(ctx, exec, tournamentID, teamID)
			if reqErr == nil {
				result = existing
				return nil
			}
			if errors.Is(reqErr, repositories.ErrJoinRequestNotFound) {
				result = &models.TournamentJoinRequest{
					TournamentID:      tournamentID,
					TeamID:            teamID,
					RequestedByUserID: userID,
					Status:            models.JoinRequestApproved,
				}
				return nil
			}
			return reqErr
		}
		if !errors.Is(err, repositories.ErrParticipantNotFound) {
			return err
		}

		existing, err := s.joinRequestRepo.GetByTournamentAndTeam(ctx, exec, tournamentID, teamID)
		if err == nil {
			switch existing.Status {
			case models.JoinRequestPending:
				return ErrJoinRequestPending
			case models.JoinRequestApproved:
				result = existing
				return nil
			case models.JoinRequestRejected:
				if err := s.joinRequestRepo.ResetToPending(ctx, exec, existing.ID, userID); err != nil {
					return err
				}
				refreshed, err := s.joinRequestRepo.GetByID(ctx, exec, existing.ID)
				if err != nil {
					return err
				}
				result = refreshed
				return nil
			default:
				return fmt.Errorf("%w: unknown join request status %q", ErrBracketCorrupted, existing.Status)
			}
		}
		if !errors.Is(err, repositories.ErrJoinRequestNotFound) {
			return err
		}

		if err := s.ensureCapacity(ctx, exec, tournamentID); err != nil {
			return err
		}

		request := &models.TournamentJoinRequest{
			TournamentID:      tournamentID,
			TeamID:            teamID,
			RequestedByUserID: userID,
			Status:            models.JoinRequestPending,
		}
		if err := s.joinRequestRepo.Create(ctx, exec, request); err != nil {
			if errors.Is(err, repositories.ErrJoinRequestConflict) {
				return ErrJoinRequestPending
			}
			return err
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveRequest одобряет заявку. Идемпотентна: отсутствующий участник
// создаётся, уже одобренная заявка не перезаписывается.
func (s *RegistrationService) ApproveRequest(ctx context.Context, adminID, tournamentID, requestID int) (*models.TournamentJoinRequest, error) {
	var result *models.TournamentJoinRequest
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		request, err := s.joinRequestRepo.GetByID(ctx, exec, requestID)
		if err != nil {
			if errors.Is(err, repositories.ErrJoinRequestNotFound) {
				return ErrJoinRequestNotFound
			}
			return err
		}
		if request.TournamentID != tournamentID {
			return ErrJoinRequestNotFound
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.TournamentDraft {
			return ErrTournamentNotEditable
		}

		_, err = s.participantRepo.GetByTournamentAndTeam(ctx, exec, tournamentID, request.TeamID)
		if err != nil {
			if !errors.Is(err, repositories.ErrParticipantNotFound) {
				return err
			}
			if err := s.ensureCapacity(ctx, exec, tournamentID); err != nil {
				return err
			}
			participant := &models.Participant{
				TournamentID: tournamentID,
				TeamID:       request.TeamID,
			}
			if err := s.participantRepo.Create(ctx, exec, participant); err != nil {
				return err
			}
		}

		if request.Status != models.JoinRequestApproved {
			if err := s.joinRequestRepo.MarkApproved(ctx, exec, requestID, adminID); err != nil {
				return err
			}
		}

		refreshed, err := s.joinRequestRepo.GetByID(ctx, exec, requestID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RejectRequest отклоняет находящуюся на рассмотрении заявку с заметкой
// ревьюера. Одобренные команды снимаются через RemoveParticipant.
func (s *RegistrationService) RejectRequest(ctx context.Context, adminID, tournamentID, requestID int, note string) (*models.TournamentJoinRequest, error) {
	var result *models.TournamentJoinRequest
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		request, err := s.joinRequestRepo.GetByID(ctx, exec, requestID)
		if err != nil {
			if errors.Is(err, repositories.ErrJoinRequestNotFound) {
				return ErrJoinRequestNotFound
			}
			return err
		}
		if request.TournamentID != tournamentID {
			return ErrJoinRequestNotFound
		}
		if request.Status == models.JoinRequestApproved {
			return ErrJoinRequestApproved
		}

		if err := s.joinRequestRepo.MarkRejected(ctx, exec, tournamentID, request.TeamID, adminID, note); err != nil {
			return err
		}
		refreshed, err := s.joinRequestRepo.GetByID(ctx, exec, requestID)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveParticipant снимает одобренную команду с турнира. Допустимо только до
// генерации сетки: draft и ни одного матча.
func (s *RegistrationService) RemoveParticipant(ctx context.Context, adminID, tournamentID, teamID int) error {
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.TournamentDraft {
			return ErrTournamentNotEditable
		}

		matchCount, err := s.matchRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if matchCount > 0 {
			return ErrParticipantHasMatches
		}

		if _, err := s.participantRepo.GetByTournamentAndTeam(ctx, exec, tournamentID, teamID); err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		if err := s.participantRepo.Delete(ctx, exec, tournamentID, teamID); err != nil {
			return err
		}

		// Заявка может отсутствовать, MarkRejected это переживает.
		return s.joinRequestRepo.MarkRejected(ctx, exec, tournamentID, teamID, adminID, removedByAdminNote)
	})
	if err != nil {
		return err
	}

	broadcastEvent(s.hub, tournamentID, brackets.EventParticipantRemoved, map[string]int{
		"tournament_id": tournamentID,
		"team_id":       teamID,
	})
	return nil
}

// ListRequests возвращает все заявки турнира для админского ревью.
func (s *RegistrationService) ListRequests(ctx context.Context, tournamentID int) ([]*models.TournamentJoinRequest, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.joinRequestRepo.ListByTournament(ctx, tournamentID)
}

func (s *RegistrationService) ensureCapacity(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	settings, err := resolveSettings(ctx, exec, s.settingsRepo, tournamentID)
	if err != nil {
		return err
	}
	approved, err := s.participantRepo.CountByTournament(ctx, exec, tournamentID)
	if err != nil {
		return err
	}
	if approved >= settings.TeamLimit {
		return fmt.Errorf("%w: limit %d reached", ErrTournamentFull, settings.TeamLimit)
	}
	return nil
}
