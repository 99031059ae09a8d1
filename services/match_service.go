package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UrThings/cs-ufe/brackets"
	"github.com/UrThings/cs-ufe/models"
	"github.com/UrThings/cs-ufe/repositories"
)

// ResolveMatchInput — заявленный победитель и, опционально, счёт серии.
// Счёт подаётся либо целиком, либо не подаётся вовсе.
type ResolveMatchInput struct {
	WinnerTeamID int  `json:"winner_team_id"`
	HomeScore    *int `json:"home_score,omitempty"`
	AwayScore    *int `json:"away_score,omitempty"`
}

// MatchService фиксирует результаты матчей и запускает каскад продвижения.
// Разрешение одноразовое: путь исправления результата в движке отсутствует.
type MatchService struct {
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	settingsRepo   repositories.SettingsRepository
	bracketService *BracketService
	txRunner       TxRunner
	hub            *brackets.Hub
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	settingsRepo repositories.SettingsRepository,
	bracketService *BracketService,
	txRunner TxRunner,
	hub *brackets.Hub,
) *MatchService {
	return &MatchService{
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		settingsRepo:   settingsRepo,
		bracketService: bracketService,
		txRunner:       txRunner,
		hub:            hub,
	}
}

// Resolve записывает победителя матча и продвигает сетку. Раунд ровно с одним
// матчем считается финалом и играется до finalBestOf, остальные до
// matchBestOf.
func (s *MatchService) Resolve(ctx context.Context, tournamentID, matchID int, input ResolveMatchInput) (*models.Match, *AdvanceReport, error) {
	var (
		resolved *models.Match
		report   *AdvanceReport
	)
	err := s.txRunner.RunSerializable(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if match.TournamentID != tournamentID {
			return ErrMatchNotFound
		}

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
		if tournament.Status != models.TournamentActive {
			return ErrTournamentNotActive
		}

		// Сетка проставляет победителя bye автоматически, поэтому bye
		// обычно отсекается уже здесь как завершённый матч.
		if match.WinnerTeamID != nil {
			return ErrMatchAlreadyResolved
		}
		if match.IsBye() {
			return ErrMatchIsBye
		}

		settings, err := resolveSettings(ctx, exec, s.settingsRepo, tournamentID)
		if err != nil {
			return err
		}
		roundSize, err := s.matchRepo.CountByRound(ctx, exec, tournamentID, match.Round)
		if err != nil {
			return err
		}
		bestOf := settings.MatchBestOf
		if roundSize == 1 {
			bestOf = settings.FinalBestOf
		}

		if err := validateResolution(match, input, bestOf); err != nil {
			return err
		}

		now := time.Now()
		if err := s.matchRepo.RecordResult(ctx, exec, matchID, input.WinnerTeamID, input.HomeScore, input.AwayScore, now); err != nil {
			return err
		}

		outcome, err := s.bracketService.advance(ctx, exec, tournamentID, match.Round)
		if err != nil {
			return err
		}

		refreshed, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return err
		}
		resolved = refreshed
		report = outcome
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	broadcastEvent(s.hub, tournamentID, brackets.EventMatchResolved, resolved)
	s.bracketService.publishAdvance(tournamentID, brackets.EventRoundAdvanced, report)
	return resolved, report, nil
}

// Get возвращает матч в рамках турнира.
func (s *MatchService) Get(ctx context.Context, tournamentID, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.TournamentID != tournamentID {
		return nil, ErrMatchNotFound
	}
	return match, nil
}

// validateResolution применяет правила серии best-of-N к заявленному
// результату: оба счёта или ни одного, без ничьих, победный счёт ровно
// requiredWins, проигравший строго меньше, победитель по счёту совпадает
// с заявленным.
func validateResolution(match *models.Match, input ResolveMatchInput, bestOf int) error {
	if input.WinnerTeamID != match.HomeTeamID && (match.AwayTeamID == nil || input.WinnerTeamID != *match.AwayTeamID) {
		return ErrWinnerNotInMatch
	}

	if (input.HomeScore == nil) != (input.AwayScore == nil) {
		return ErrScoresIncomplete
	}
	if input.HomeScore == nil {
		return nil
	}

	home, away := *input.HomeScore, *input.AwayScore
	requiredWins := brackets.RequiredWins(bestOf)

	if home == away {
		return fmt.Errorf("%w: draw is not allowed", ErrScoresInvalid)
	}
	higher, lower := home, away
	scoreWinner := match.HomeTeamID
	if away > home {
		higher, lower = away, home
		scoreWinner = *match.AwayTeamID
	}
	if higher != requiredWins {
		return fmt.Errorf("%w: winning score must be exactly %d in a best-of-%d series", ErrScoresInvalid, requiredWins, bestOf)
	}
	if lower >= requiredWins || lower < 0 {
		return fmt.Errorf("%w: losing score must be between 0 and %d", ErrScoresInvalid, requiredWins-1)
	}
	if scoreWinner != input.WinnerTeamID {
		return ErrWinnerScoreMismatch
	}
	return nil
}
