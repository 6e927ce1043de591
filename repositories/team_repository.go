package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/playvora/arena-engine/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	GetRoster(ctx context.Context, exec SQLExecutor, teamID int) ([]models.User, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, name, game, captain_id, logo_key, created_at
		FROM teams
		WHERE id = $1`

	team := &models.Team{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&team.Game,
		&team.CaptainID,
		&team.LogoKey,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team %d: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) GetRoster(ctx context.Context, exec SQLExecutor, teamID int) ([]models.User, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, nickname, team_id, role, created_at
		FROM users
		WHERE team_id = $1
		ORDER BY id ASC`

	rows, err := executor.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster of team %d: %w", teamID, err)
	}
	defer rows.Close()

	roster := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if scanErr := rows.Scan(&u.ID, &u.Nickname, &u.TeamID, &u.Role, &u.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", scanErr)
		}
		roster = append(roster, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during roster rows iteration: %w", err)
	}
	return roster, nil
}
