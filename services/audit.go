package services

import (
	"context"
	"log/slog"

	"github.com/playvora/arena-engine/models"
	"github.com/playvora/arena-engine/repositories"
)

// AuditRecorder appends lifecycle transitions to the audit log. Writes are
// soft-fail: losing an audit record is less harmful than failing the match
// transition that produced it, so errors are logged and swallowed.
type AuditRecorder interface {
	Record(ctx context.Context, exec repositories.SQLExecutor, entry models.AuditLogEntry)
	ListByMatch(ctx context.Context, matchID int) ([]*models.AuditLogEntry, error)
	ListByTournament(ctx context.Context, tournamentID int, limit int) ([]*models.AuditLogEntry, error)
}

type auditRecorder struct {
	auditRepo repositories.AuditLogRepository
	logger    *slog.Logger
}

func NewAuditRecorder(auditRepo repositories.AuditLogRepository, logger *slog.Logger) AuditRecorder {
	return &auditRecorder{auditRepo: auditRepo, logger: logger}
}

func (a *auditRecorder) Record(ctx context.Context, exec repositories.SQLExecutor, entry models.AuditLogEntry) {
	if err := a.auditRepo.Create(ctx, exec, &entry); err != nil {
		a.logger.ErrorContext(ctx, "failed to write audit entry",
			slog.Int("match_id", entry.MatchID),
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
	}
}

func (a *auditRecorder) ListByMatch(ctx context.Context, matchID int) ([]*models.AuditLogEntry, error) {
	return a.auditRepo.ListByMatch(ctx, nil, matchID)
}

func (a *auditRecorder) ListByTournament(ctx context.Context, tournamentID int, limit int) ([]*models.AuditLogEntry, error) {
	return a.auditRepo.ListByTournament(ctx, nil, tournamentID, limit)
}
