package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/playvora/arena-engine/models"
	"github.com/playvora/arena-engine/repositories"
)

// StatsService maintains the durable running aggregates. Updates are purely
// incremental: counters go up, derived metrics (K/D, win rate, averages) are
// recomputed from the running sums, and nothing is ever rebuilt from match
// history.
type StatsService interface {
	ApplyApprovedMatch(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match) error
	// RecordTournamentPlacement stamps a team's final placement in one
	// tournament onto its durable aggregate.
	RecordTournamentPlacement(ctx context.Context, exec repositories.SQLExecutor, game string, teamID, tournamentID, placement int) error
	GetTeamStats(ctx context.Context, teamID int, game string) (*models.TeamStats, error)
	GetPlayerStats(ctx context.Context, playerID int, game string) (*models.PlayerStats, error)
}

type statsService struct {
	statsRepo repositories.StatsRepository
	logger    *slog.Logger
}

func NewStatsService(statsRepo repositories.StatsRepository, logger *slog.Logger) StatsService {
	return &statsService{statsRepo: statsRepo, logger: logger}
}

func (s *statsService) ApplyApprovedMatch(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match) error {
	if match.Result == nil {
		return ErrResultMissing
	}

	blocks := s.resultBlocks(match)
	for i := range blocks {
		block := &blocks[i]
		if block.TeamID == 0 {
			continue
		}
		outcome := blockOutcome(match, block)
		if err := s.applyTeamBlock(ctx, exec, tournament.Game, block, outcome); err != nil {
			return err
		}
		for j := range block.Players {
			if err := s.applyPlayerLine(ctx, exec, tournament.Game, &block.Players[j], outcome); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *statsService) resultBlocks(match *models.Match) []models.TeamResultStats {
	if match.Format == models.FormatBattleRoyale {
		return match.Result.Lobby
	}
	return []models.TeamResultStats{match.Result.TeamA, match.Result.TeamB}
}

type matchOutcome int

const (
	outcomeLoss matchOutcome = iota
	outcomeWin
	outcomeDraw
)

func blockOutcome(match *models.Match, block *models.TeamResultStats) matchOutcome {
	if match.Format == models.FormatBattleRoyale {
		if block.Placement == 1 {
			return outcomeWin
		}
		return outcomeLoss
	}
	winnerSlot := match.Result.WinnerSlot()
	if winnerSlot == 0 {
		return outcomeDraw
	}
	if match.Result.SideStats(winnerSlot).TeamID == block.TeamID {
		return outcomeWin
	}
	return outcomeLoss
}

func (s *statsService) applyTeamBlock(ctx context.Context, exec repositories.SQLExecutor, game string, block *models.TeamResultStats, outcome matchOutcome) error {
	stats, err := s.statsRepo.GetOrCreateTeamStats(ctx, exec, block.TeamID, game)
	if err != nil {
		return fmt.Errorf("failed to load team stats for team %d: %w", block.TeamID, err)
	}

	stats.MatchesPlayed++
	switch outcome {
	case outcomeWin:
		stats.Wins++
	case outcomeDraw:
		stats.Draws++
	default:
		stats.Losses++
	}
	stats.TotalPoints += block.TotalPoints
	stats.TotalKills += block.Kills
	stats.WinRate = ratio(stats.Wins, stats.MatchesPlayed)
	stats.AvgKills = avg(stats.TotalKills, stats.MatchesPlayed)

	if err := s.statsRepo.UpdateTeamStats(ctx, exec, stats); err != nil {
		return fmt.Errorf("failed to update team stats %s: %w", stats.ID, err)
	}
	return nil
}

func (s *statsService) applyPlayerLine(ctx context.Context, exec repositories.SQLExecutor, game string, line *models.PlayerMatchStats, outcome matchOutcome) error {
	stats, err := s.statsRepo.GetOrCreatePlayerStats(ctx, exec, line.PlayerID, game)
	if err != nil {
		return fmt.Errorf("failed to load player stats for player %d: %w", line.PlayerID, err)
	}

	stats.MatchesPlayed++
	switch outcome {
	case outcomeWin:
		stats.Wins++
	case outcomeDraw:
		stats.Draws++
	default:
		stats.Losses++
	}
	stats.TotalPoints += line.Points
	stats.Kills += line.Kills
	stats.Deaths += line.Deaths
	stats.Assists += line.Assists
	stats.Damage += line.Damage
	stats.Headshots += line.Headshots
	if line.MVP {
		stats.MVPCount++
	}

	if stats.Deaths > 0 {
		stats.KDRatio = float64(stats.Kills) / float64(stats.Deaths)
	} else {
		stats.KDRatio = float64(stats.Kills)
	}
	stats.AvgKills = avg(stats.Kills, stats.MatchesPlayed)
	stats.WinRate = ratio(stats.Wins, stats.MatchesPlayed)

	if err := s.statsRepo.UpdatePlayerStats(ctx, exec, stats); err != nil {
		return fmt.Errorf("failed to update player stats %s: %w", stats.ID, err)
	}
	return nil
}

func (s *statsService) RecordTournamentPlacement(ctx context.Context, exec repositories.SQLExecutor, game string, teamID, tournamentID, placement int) error {
	stats, err := s.statsRepo.GetOrCreateTeamStats(ctx, exec, teamID, game)
	if err != nil {
		return fmt.Errorf("failed to load team stats for team %d: %w", teamID, err)
	}
	if stats.Placements == nil {
		stats.Placements = make(map[int]int)
	}
	stats.Placements[tournamentID] = placement
	if err := s.statsRepo.UpdateTeamStats(ctx, exec, stats); err != nil {
		return fmt.Errorf("failed to update team stats %s: %w", stats.ID, err)
	}
	return nil
}

func (s *statsService) GetTeamStats(ctx context.Context, teamID int, game string) (*models.TeamStats, error) {
	stats, err := s.statsRepo.GetTeamStats(ctx, nil, teamID, game)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamStatsNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stats, nil
}

func (s *statsService) GetPlayerStats(ctx context.Context, playerID int, game string) (*models.PlayerStats, error) {
	stats, err := s.statsRepo.GetPlayerStats(ctx, nil, playerID, game)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerStatsNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stats, nil
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

func avg(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
