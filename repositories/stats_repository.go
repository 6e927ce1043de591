package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playvora/arena-engine/models"
)

var (
	ErrTeamStatsNotFound   = errors.New("team stats not found")
	ErrPlayerStatsNotFound = errors.New("player stats not found")
)

// StatsRepository persists the durable running aggregates, keyed
// "{entityID}_{game}". GetOrCreate follows the lazily-created, incrementally
// updated contract: documents are never decremented or rebuilt from history.
type StatsRepository interface {
	GetTeamStats(ctx context.Context, exec SQLExecutor, teamID int, game string) (*models.TeamStats, error)
	GetOrCreateTeamStats(ctx context.Context, exec SQLExecutor, teamID int, game string) (*models.TeamStats, error)
	UpdateTeamStats(ctx context.Context, exec SQLExecutor, stats *models.TeamStats) error

	GetPlayerStats(ctx context.Context, exec SQLExecutor, playerID int, game string) (*models.PlayerStats, error)
	GetOrCreatePlayerStats(ctx context.Context, exec SQLExecutor, playerID int, game string) (*models.PlayerStats, error)
	UpdatePlayerStats(ctx context.Context, exec SQLExecutor, stats *models.PlayerStats) error
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

func (r *postgresStatsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStatsRepository) GetTeamStats(ctx context.Context, exec SQLExecutor, teamID int, game string) (*models.TeamStats, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, team_id, game, matches_played, wins, losses, draws, total_points, total_kills,
		       win_rate, avg_kills, placements, updated_at
		FROM team_stats
		WHERE id = $1`

	stats := &models.TeamStats{}
	var placements []byte
	err := executor.QueryRowContext(ctx, query, models.StatsKey(teamID, game)).Scan(
		&stats.ID,
		&stats.TeamID,
		&stats.Game,
		&stats.MatchesPlayed,
		&stats.Wins,
		&stats.Losses,
		&stats.Draws,
		&stats.TotalPoints,
		&stats.TotalKills,
		&stats.WinRate,
		&stats.AvgKills,
		&placements,
		&stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamStatsNotFound
		}
		return nil, fmt.Errorf("failed to scan team stats %d/%s: %w", teamID, game, err)
	}
	if len(placements) > 0 {
		if err := json.Unmarshal(placements, &stats.Placements); err != nil {
			return nil, fmt.Errorf("failed to unmarshal placements of team stats %s: %w", stats.ID, err)
		}
	}
	return stats, nil
}

func (r *postgresStatsRepository) GetOrCreateTeamStats(ctx context.Context, exec SQLExecutor, teamID int, game string) (*models.TeamStats, error) {
	executor := r.getExecutor(exec)
	stats, err := r.GetTeamStats(ctx, executor, teamID, game)
	if err != nil {
		if errors.Is(err, ErrTeamStatsNotFound) {
			fresh := &models.TeamStats{
				ID:        models.StatsKey(teamID, game),
				TeamID:    teamID,
				Game:      game,
				UpdatedAt: time.Now(),
			}
			query := `
				INSERT INTO team_stats (id, team_id, game, updated_at)
				VALUES ($1, $2, $3, $4)`
			if _, createErr := executor.ExecContext(ctx, query, fresh.ID, teamID, game, fresh.UpdatedAt); createErr != nil {
				return nil, fmt.Errorf("failed to create team stats %s: %w", fresh.ID, createErr)
			}
			return fresh, nil
		}
		return nil, err
	}
	return stats, nil
}

func (r *postgresStatsRepository) UpdateTeamStats(ctx context.Context, exec SQLExecutor, stats *models.TeamStats) error {
	executor := r.getExecutor(exec)

	placements, err := json.Marshal(stats.Placements)
	if err != nil {
		return fmt.Errorf("failed to marshal placements of team stats %s: %w", stats.ID, err)
	}

	stats.UpdatedAt = time.Now()
	query := `
		UPDATE team_stats SET
			matches_played = $1, wins = $2, losses = $3, draws = $4,
			total_points = $5, total_kills = $6, win_rate = $7, avg_kills = $8,
			placements = $9, updated_at = $10
		WHERE id = $11`
	result, err := executor.ExecContext(ctx, query,
		stats.MatchesPlayed, stats.Wins, stats.Losses, stats.Draws,
		stats.TotalPoints, stats.TotalKills, stats.WinRate, stats.AvgKills,
		placements, stats.UpdatedAt, stats.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update team stats %s: %w", stats.ID, err)
	}
	return checkAffectedRows(result, ErrTeamStatsNotFound)
}

func (r *postgresStatsRepository) GetPlayerStats(ctx context.Context, exec SQLExecutor, playerID int, game string) (*models.PlayerStats, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, player_id, game, matches_played, wins, losses, draws, total_points,
		       kills, deaths, assists, damage, headshots, mvp_count,
		       kd_ratio, avg_kills, win_rate, updated_at
		FROM player_stats
		WHERE id = $1`

	stats := &models.PlayerStats{}
	err := executor.QueryRowContext(ctx, query, models.StatsKey(playerID, game)).Scan(
		&stats.ID,
		&stats.PlayerID,
		&stats.Game,
		&stats.MatchesPlayed,
		&stats.Wins,
		&stats.Losses,
		&stats.Draws,
		&stats.TotalPoints,
		&stats.Kills,
		&stats.Deaths,
		&stats.Assists,
		&stats.Damage,
		&stats.Headshots,
		&stats.MVPCount,
		&stats.KDRatio,
		&stats.AvgKills,
		&stats.WinRate,
		&stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerStatsNotFound
		}
		return nil, fmt.Errorf("failed to scan player stats %d/%s: %w", playerID, game, err)
	}
	return stats, nil
}

func (r *postgresStatsRepository) GetOrCreatePlayerStats(ctx context.Context, exec SQLExecutor, playerID int, game string) (*models.PlayerStats, error) {
	executor := r.getExecutor(exec)
	stats, err := r.GetPlayerStats(ctx, executor, playerID, game)
	if err != nil {
		if errors.Is(err, ErrPlayerStatsNotFound) {
			fresh := &models.PlayerStats{
				ID:        models.StatsKey(playerID, game),
				PlayerID:  playerID,
				Game:      game,
				UpdatedAt: time.Now(),
			}
			query := `
				INSERT INTO player_stats (id, player_id, game, updated_at)
				VALUES ($1, $2, $3, $4)`
			if _, createErr := executor.ExecContext(ctx, query, fresh.ID, playerID, game, fresh.UpdatedAt); createErr != nil {
				return nil, fmt.Errorf("failed to create player stats %s: %w", fresh.ID, createErr)
			}
			return fresh, nil
		}
		return nil, err
	}
	return stats, nil
}

func (r *postgresStatsRepository) UpdatePlayerStats(ctx context.Context, exec SQLExecutor, stats *models.PlayerStats) error {
	executor := r.getExecutor(exec)
	stats.UpdatedAt = time.Now()
	query := `
		UPDATE player_stats SET
			matches_played = $1, wins = $2, losses = $3, draws = $4, total_points = $5,
			kills = $6, deaths = $7, assists = $8, damage = $9, headshots = $10,
			mvp_count = $11, kd_ratio = $12, avg_kills = $13, win_rate = $14, updated_at = $15
		WHERE id = $16`
	result, err := executor.ExecContext(ctx, query,
		stats.MatchesPlayed, stats.Wins, stats.Losses, stats.Draws, stats.TotalPoints,
		stats.Kills, stats.Deaths, stats.Assists, stats.Damage, stats.Headshots,
		stats.MVPCount, stats.KDRatio, stats.AvgKills, stats.WinRate, stats.UpdatedAt,
		stats.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update player stats %s: %w", stats.ID, err)
	}
	return checkAffectedRows(result, ErrPlayerStatsNotFound)
}
