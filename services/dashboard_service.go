package services

import (
	"context"

	"github.com/UrThings/cs-ufe/repositories"
	"golang.org/x/sync/errgroup"
)

// DashboardMetrics — сводные счётчики для админской панели.
type DashboardMetrics struct {
	Teams       int `json:"teams"`
	PaidTeams   int `json:"paid_teams"`
	Tournaments int `json:"tournaments"`
	Matches     int `json:"matches"`
}

type DashboardService struct {
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
}

func NewDashboardService(
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
) *DashboardService {
	return &DashboardService{
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
	}
}

// GetMetrics собирает счётчики параллельно, ответ не кэшируется.
func (s *DashboardService) GetMetrics(ctx context.Context) (*DashboardMetrics, error) {
	metrics := &DashboardMetrics{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		metrics.Teams, err = s.teamRepo.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		metrics.PaidTeams, err = s.teamRepo.CountPaid(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		metrics.Tournaments, err = s.tournamentRepo.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		metrics.Matches, err = s.matchRepo.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return metrics, nil
}
