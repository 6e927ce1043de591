package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/playvora/arena-engine/models"
)

// AuditLogRepository is append-only: entries are never updated or deleted.
type AuditLogRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.AuditLogEntry) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.AuditLogEntry, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, limit int) ([]*models.AuditLogEntry, error)
}

type postgresAuditLogRepository struct {
	db *sql.DB
}

func NewPostgresAuditLogRepository(db *sql.DB) AuditLogRepository {
	return &postgresAuditLogRepository{db: db}
}

func (r *postgresAuditLogRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAuditLogRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.AuditLogEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_audit_logs
			(match_id, tournament_id, action, actor_id, actor_name, prev_status, new_status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		entry.MatchID,
		entry.TournamentID,
		entry.Action,
		entry.ActorID,
		entry.ActorName,
		entry.PrevStatus,
		entry.NewStatus,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry for match %d: %w", entry.MatchID, err)
	}
	return nil
}

func (r *postgresAuditLogRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.AuditLogEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, match_id, tournament_id, action, actor_id, actor_name, prev_status, new_status, note, created_at
		FROM match_audit_logs
		WHERE match_id = $1
		ORDER BY id ASC`
	rows, err := executor.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries for match %d: %w", matchID, err)
	}
	defer rows.Close()
	return r.collectEntries(rows)
}

func (r *postgresAuditLogRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, limit int) ([]*models.AuditLogEntry, error) {
	executor := r.getExecutor(exec)
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, match_id, tournament_id, action, actor_id, actor_name, prev_status, new_status, note, created_at
		FROM match_audit_logs
		WHERE tournament_id = $1
		ORDER BY id DESC
		LIMIT $2`
	rows, err := executor.QueryContext(ctx, query, tournamentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()
	return r.collectEntries(rows)
}

func (r *postgresAuditLogRepository) collectEntries(rows *sql.Rows) ([]*models.AuditLogEntry, error) {
	entries := make([]*models.AuditLogEntry, 0)
	for rows.Next() {
		entry := &models.AuditLogEntry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.MatchID,
			&entry.TournamentID,
			&entry.Action,
			&entry.ActorID,
			&entry.ActorName,
			&entry.PrevStatus,
			&entry.NewStatus,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during audit rows iteration: %w", err)
	}
	return entries, nil
}
