package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/playvora/arena-engine/models"
)

var (
	ErrRegistrationNotFound       = errors.New("registration not found")
	ErrRegistrationTeamInvalid    = errors.New("registration team conflict or invalid")
	ErrRegistrationAlreadyPresent = errors.New("team is already registered for this tournament")
)

type RegistrationRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	// ListByTournament returns registrations, optionally filtered by status,
	// ordered by seed then id. withTeams loads the team (name, captain) for
	// each row.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, status *models.RegistrationStatus, withTeams bool) ([]*models.Registration, error)
	UpdateGroupLabel(ctx context.Context, exec SQLExecutor, id int, label *string, allocationVersion int) error
	// MaxAllocationVersion returns the highest allocation version present
	// for the tournament, zero when no registration was ever allocated.
	MaxAllocationVersion(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, team_id, group_label, status, seed, allocation_version, created_at
		FROM tournament_registrations
		WHERE id = $1`

	reg := &models.Registration{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&reg.ID,
		&reg.TournamentID,
		&reg.TeamID,
		&reg.GroupLabel,
		&reg.Status,
		&reg.Seed,
		&reg.AllocationVersion,
		&reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan registration %d: %w", id, err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, status *models.RegistrationStatus, withTeams bool) ([]*models.Registration, error) {
	executor := r.getExecutor(exec)

	query := `
		SELECT r.id, r.tournament_id, r.team_id, r.group_label, r.status, r.seed, r.allocation_version, r.created_at`
	if withTeams {
		query += `, t.name, t.game, t.captain_id`
	}
	query += ` FROM tournament_registrations r`
	if withTeams {
		query += ` JOIN teams t ON t.id = r.team_id`
	}
	query += ` WHERE r.tournament_id = $1`

	args := []interface{}{tournamentID}
	if status != nil {
		query += ` AND r.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY r.seed ASC, r.id ASC`

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		dest := []interface{}{
			&reg.ID, &reg.TournamentID, &reg.TeamID, &reg.GroupLabel,
			&reg.Status, &reg.Seed, &reg.AllocationVersion, &reg.CreatedAt,
		}
		var teamName, teamGame string
		var captainID int
		if withTeams {
			dest = append(dest, &teamName, &teamGame, &captainID)
		}
		if scanErr := rows.Scan(dest...); scanErr != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", scanErr)
		}
		if withTeams {
			reg.Team = &models.Team{ID: reg.TeamID, Name: teamName, Game: teamGame, CaptainID: captainID}
		}
		regs = append(regs, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during registration rows iteration: %w", err)
	}
	return regs, nil
}

func (r *postgresRegistrationRepository) UpdateGroupLabel(ctx context.Context, exec SQLExecutor, id int, label *string, allocationVersion int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_registrations SET group_label = $1, allocation_version = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, label, allocationVersion, id)
	if err != nil {
		return r.handleRegistrationError(err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) MaxAllocationVersion(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COALESCE(MAX(allocation_version), 0) FROM tournament_registrations WHERE tournament_id = $1`
	var version int
	if err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read allocation version for tournament %d: %w", tournamentID, err)
	}
	return version, nil
}

func (r *postgresRegistrationRepository) handleRegistrationError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "tournament_registrations_team_id_fkey":
			return ErrRegistrationTeamInvalid
		case "tournament_registrations_tournament_team_key":
			return ErrRegistrationAlreadyPresent
		}
	}
	return err
}
