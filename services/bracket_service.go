package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/UrThings/cs-ufe/brackets"
	"github.com/UrThings/cs-ufe/models"
	"github.com/UrThings/cs-ufe/repositories"
)

// AdvanceReport — итог прогона каскада продвижения раундов.
type AdvanceReport struct {
	Finished        bool  `json:"finished"`
	ChampionTeamID  *int  `json:"champion_team_id,omitempty"`
	GeneratedRounds []int `json:"generated_rounds,omitempty"`
}

// BracketService генерирует сетку single elimination и продвигает победителей
// по раундам. Сетка строится один раз; всё после первого раунда выводится
// детерминированно из списка победителей, поэтому каскад может проверять
// существующие строки на целостность.
type BracketService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	settingsRepo    repositories.SettingsRepository
	txRunner        TxRunner
	hub             *brackets.Hub
	logger          *slog.Logger
	newRandSource   func() rand.Source
}

// NewBracketService собирает сервис. newRandSource управляет перемешиванием
// посева, nil означает источник со временем в качестве зерна.
func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	settingsRepo repositories.SettingsRepository,
	txRunner TxRunner,
	hub *brackets.Hub,
	logger *slog.Logger,
	newRandSource func() rand.Source,
) *BracketService {
	if newRandSource == nil {
		newRandSource = func() rand.Source {
			return rand.NewSource(time.Now().UnixNano())
		}
	}
	return &BracketService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		settingsRepo:    settingsRepo,
		txRunner:        txRunner,
		hub:             hub,
		logger:          logger,
		newRandSource:   newRandSource,
	}
}

// Seed строит первый раунд сетки. Строго one-shot: только draft, только
// single elimination и только пока у турнира нет ни одного матча.
// Участники берутся в порядке одобрения и усекаются до лимита команд;
// лишние остаются участниками, но в эту сетку не попадают.
func (s *BracketService) Seed(ctx context.Context, tournamentID int, shuffle bool) (*AdvanceReport, error) {
	var report *AdvanceReport
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Format != models.FormatSingleElimination {
			return ErrUnsupportedFormat
		}
		if tournament.Status != models.TournamentDraft {
			return ErrTournamentAlreadySeeded
		}
		matchCount, err := s.matchRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if matchCount > 0 {
			return ErrTournamentAlreadySeeded
		}

		settings, err := resolveSettings(ctx, exec, s.settingsRepo, tournamentID)
		if err != nil {
			return err
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if len(participants) > settings.TeamLimit {
			s.logger.Warn("participant list exceeds team limit, truncating to earliest approvals",
				slog.Int("tournament_id", tournamentID),
				slog.Int("participants", len(participants)),
				slog.Int("team_limit", settings.TeamLimit))
			participants = participants[:settings.TeamLimit]
		}
		if len(participants) < 2 {
			return ErrNotEnoughTeams
		}

		teamIDs := make([]int, len(participants))
		for i, p := range participants {
			teamIDs[i] = p.TeamID
		}
		if shuffle {
			teamIDs = brackets.Shuffle(teamIDs, s.newRandSource())
		}
		if brackets.HasDuplicateTeams(teamIDs) {
			return s.integrityFault(tournamentID, 1, "duplicate team in seeding list")
		}

		now := time.Now()
		pairings := brackets.BuildRoundPairings(teamIDs)
		for _, pairing := range pairings {
			if _, err := s.createPairingMatch(ctx, exec, tournamentID, 1, pairing, now); err != nil {
				return err
			}
		}

		if err := s.tournamentRepo.MarkSeeded(ctx, exec, tournamentID, now); err != nil {
			return err
		}

		// Вырожденный случай: первый раунд может состоять из одних bye,
		// тогда каскад сразу генерирует следующий раунд или финиширует.
		outcome, err := s.advance(ctx, exec, tournamentID, 1)
		if err != nil {
			return err
		}
		report = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishAdvance(tournamentID, brackets.EventTournamentSeeded, report)
	return report, nil
}

// Advance прогоняет каскад от указанного раунда вне контекста resolveMatch,
// административная ручка для застрявшей сетки.
func (s *BracketService) Advance(ctx context.Context, tournamentID, fromRound int) (*AdvanceReport, error) {
	var report *AdvanceReport
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID); err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		outcome, err := s.advance(ctx, exec, tournamentID, fromRound)
		if err != nil {
			return err
		}
		report = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishAdvance(tournamentID, brackets.EventRoundAdvanced, report)
	return report, nil
}

// advance — цикл каскада. Каждая итерация смотрит на текущий раунд: если он
// полностью разрешён, из списка победителей выводится следующий раунд,
// существующие строки сверяются с ожидаемыми, недостающие создаются. Цикл
// продолжается, пока следующий раунд разрешается сам собой (одни bye).
func (s *BracketService) advance(ctx context.Context, exec repositories.SQLExecutor, tournamentID, fromRound int) (*AdvanceReport, error) {
	report := &AdvanceReport{}
	round := fromRound

	for {
		matches, err := s.matchRepo.ListByRound(ctx, exec, tournamentID, round)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return report, nil
		}

		winners := make([]int, 0, len(matches))
		for _, match := range matches {
			if match.WinnerTeamID == nil {
				return report, nil
			}
			winners = append(winners, *match.WinnerTeamID)
		}
		if brackets.HasDuplicateTeams(winners) {
			return nil, s.integrityFault(tournamentID, round, "duplicate winner in round")
		}

		if len(winners) == 1 {
			now := time.Now()
			if err := s.tournamentRepo.MarkFinished(ctx, exec, tournamentID, winners[0], now); err != nil {
				return nil, err
			}
			report.Finished = true
			report.ChampionTeamID = intPtr(winners[0])
			return report, nil
		}

		expected := brackets.BuildRoundPairings(winners)
		nextRound := round + 1

		existing, err := s.matchRepo.ListByRound(ctx, exec, tournamentID, nextRound)
		if err != nil {
			return nil, err
		}
		if len(existing) > len(expected) {
			return nil, s.integrityFault(tournamentID, nextRound, "more matches than expected pairings")
		}
		existingByPosition := make(map[int]*models.Match, len(existing))
		for _, match := range existing {
			existingByPosition[match.Position] = match
		}

		nextMatches := make([]*models.Match, 0, len(expected))
		created := false
		for _, pairing := range expected {
			if match, ok := existingByPosition[pairing.Position]; ok {
				if !pairingMatchesRow(pairing, match) {
					return nil, s.integrityFault(tournamentID, nextRound,
						fmt.Sprintf("existing match at position %d does not match derived pairing", pairing.Position))
				}
				nextMatches = append(nextMatches, match)
				continue
			}
			match, err := s.createPairingMatch(ctx, exec, tournamentID, nextRound, pairing, time.Now())
			if err != nil {
				return nil, err
			}
			nextMatches = append(nextMatches, match)
			created = true
		}
		if created {
			report.GeneratedRounds = append(report.GeneratedRounds, nextRound)
		}

		for _, match := range nextMatches {
			if match.WinnerTeamID == nil {
				return report, nil
			}
		}
		round = nextRound
	}
}

// createPairingMatch создаёт строку матча для слота сетки. Bye создаётся
// сразу завершённым с победой домашней команды.
func (s *BracketService) createPairingMatch(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int, pairing brackets.Pairing, scheduledAt time.Time) (*models.Match, error) {
	match := &models.Match{
		TournamentID: tournamentID,
		Round:        round,
		Position:     pairing.Position,
		HomeTeamID:   pairing.HomeTeamID,
		AwayTeamID:   pairing.AwayTeamID,
		Status:       models.MatchScheduled,
		ScheduledAt:  scheduledAt,
	}
	if pairing.IsBye() {
		completedAt := scheduledAt
		match.Status = models.MatchCompleted
		match.WinnerTeamID = intPtr(pairing.HomeTeamID)
		match.CompletedAt = &completedAt
	}
	if err := s.matchRepo.Create(ctx, exec, match); err != nil {
		if errors.Is(err, repositories.ErrMatchPositionConflict) {
			return nil, s.integrityFault(tournamentID, round,
				fmt.Sprintf("position %d already taken", pairing.Position))
		}
		return nil, err
	}
	return match, nil
}

// integrityFault логирует повреждение сетки отдельно от обычных 4xx ошибок.
func (s *BracketService) integrityFault(tournamentID, round int, detail string) error {
	s.logger.Error("bracket integrity fault",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", round),
		slog.String("detail", detail))
	return fmt.Errorf("%w: tournament %d round %d: %s", ErrBracketCorrupted, tournamentID, round, detail)
}

func (s *BracketService) publishAdvance(tournamentID int, eventType string, report *AdvanceReport) {
	if report == nil {
		return
	}
	broadcastEvent(s.hub, tournamentID, eventType, report)
	if report.Finished {
		broadcastEvent(s.hub, tournamentID, brackets.EventTournamentFinished, report)
	}
}

func pairingMatchesRow(pairing brackets.Pairing, match *models.Match) bool {
	if match.HomeTeamID != pairing.HomeTeamID {
		return false
	}
	if (match.AwayTeamID == nil) != (pairing.AwayTeamID == nil) {
		return false
	}
	if match.AwayTeamID != nil && *match.AwayTeamID != *pairing.AwayTeamID {
		return false
	}
	return true
}
