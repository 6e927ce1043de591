package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/playvora/arena-engine/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchStateConflict     = errors.New("match status changed concurrently or does not permit the update")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchNumberConflict    = errors.New("match number already used in this tournament")
)

// MatchFilter narrows ListByTournament. Nil fields are ignored.
type MatchFilter struct {
	Round      *int
	Status     *models.MatchStatus
	GroupLabel *string
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByNumber(ctx context.Context, exec SQLExecutor, tournamentID, matchNumber int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error)
	ListByAggregate(ctx context.Context, exec SQLExecutor, aggregateID int) ([]*models.Match, error)
	// UpdateResultStatus applies a compare-and-set transition: the row is
	// updated only while its current status is one of expected. Zero rows
	// affected surfaces as ErrMatchStateConflict.
	UpdateResultStatus(ctx context.Context, exec SQLExecutor, id int, result *models.MatchResult, expected []models.MatchStatus, next models.MatchStatus) error
	UpdateSlot(ctx context.Context, exec SQLExecutor, id int, slot int, value models.MatchSlot) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID, nextSlot *int) error
	CountActiveByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, round, match_number, group_label, format, slot_a, slot_b,
		scheduled_at, status, leg, aggregate_id, next_match_id, next_slot, result, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)

	slotA, err := json.Marshal(match.SlotA)
	if err != nil {
		return fmt.Errorf("failed to marshal slot A: %w", err)
	}
	slotB, err := json.Marshal(match.SlotB)
	if err != nil {
		return fmt.Errorf("failed to marshal slot B: %w", err)
	}
	resultJSON, err := marshalResult(match.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches_detailed
			(tournament_id, round, match_number, group_label, format, slot_a, slot_b,
			 scheduled_at, status, leg, aggregate_id, next_match_id, next_slot, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err = executor.QueryRowContext(ctx, query,
		match.TournamentID,
		match.Round,
		match.MatchNumber,
		match.GroupLabel,
		match.Format,
		slotA,
		slotB,
		match.ScheduledAt,
		match.Status,
		match.Leg,
		match.AggregateID,
		match.NextMatchID,
		match.NextSlot,
		resultJSON,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches_detailed WHERE id = $1`
	return r.scanMatch(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByNumber(ctx context.Context, exec SQLExecutor, tournamentID, matchNumber int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches_detailed WHERE tournament_id = $1 AND match_number = $2`
	return r.scanMatch(executor.QueryRowContext(ctx, query, tournamentID, matchNumber))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter MatchFilter) ([]*models.Match, error) {
	executor := r.getExecutor(exec)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches_detailed WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if filter.Round != nil {
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Round)
		placeholderIndex++
	}
	if filter.Status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Status)
		placeholderIndex++
	}
	if filter.GroupLabel != nil {
		queryBuilder.WriteString(" AND group_label = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.GroupLabel)
	}

	queryBuilder.WriteString(" ORDER BY match_number ASC")

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	return r.collectMatches(rows)
}

func (r *postgresMatchRepository) ListByAggregate(ctx context.Context, exec SQLExecutor, aggregateID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches_detailed WHERE aggregate_id = $1 ORDER BY leg ASC`
	rows, err := executor.QueryContext(ctx, query, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query legs for aggregate %d: %w", aggregateID, err)
	}
	defer rows.Close()

	return r.collectMatches(rows)
}

func (r *postgresMatchRepository) UpdateResultStatus(ctx context.Context, exec SQLExecutor, id int, result *models.MatchResult, expected []models.MatchStatus, next models.MatchStatus) error {
	executor := r.getExecutor(exec)

	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}

	expectedStrs := make([]string, len(expected))
	for i, s := range expected {
		expectedStrs[i] = string(s)
	}

	query := `
		UPDATE matches_detailed
		SET result = $1, status = $2
		WHERE id = $3 AND status = ANY($4)`

	res, err := executor.ExecContext(ctx, query, resultJSON, next, id, pq.Array(expectedStrs))
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(res, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) UpdateSlot(ctx context.Context, exec SQLExecutor, id int, slot int, value models.MatchSlot) error {
	executor := r.getExecutor(exec)

	slotJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal slot value: %w", err)
	}

	column := "slot_a"
	if slot == models.SlotB {
		column = "slot_b"
	}

	query := `UPDATE matches_detailed SET ` + column + ` = $1 WHERE id = $2`
	res, err := executor.ExecContext(ctx, query, slotJSON, id)
	if err != nil {
		return fmt.Errorf("UpdateSlot: failed to execute query for match %d: %w", id, err)
	}
	return checkAffectedRows(res, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID, nextSlot *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches_detailed SET next_match_id = $1, next_slot = $2 WHERE id = $3`
	res, err := executor.ExecContext(ctx, query, nextMatchID, nextSlot, id)
	if err != nil {
		return fmt.Errorf("UpdateNextMatchInfo: failed to execute query for match %d: %w", id, err)
	}
	return checkAffectedRows(res, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountActiveByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COUNT(*) FROM matches_detailed
		WHERE tournament_id = $1 AND status NOT IN ('approved', 'rejected', 'scheduled')`
	var count int
	if err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM matches_detailed WHERE tournament_id = $1`
	_, err := executor.ExecContext(ctx, query, tournamentID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresMatchRepository) scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	var slotA, slotB []byte
	var result []byte

	err := row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.Round,
		&match.MatchNumber,
		&match.GroupLabel,
		&match.Format,
		&slotA,
		&slotB,
		&match.ScheduledAt,
		&match.Status,
		&match.Leg,
		&match.AggregateID,
		&match.NextMatchID,
		&match.NextSlot,
		&result,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match row: %w", err)
	}

	if err := json.Unmarshal(slotA, &match.SlotA); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slot A of match %d: %w", match.ID, err)
	}
	if err := json.Unmarshal(slotB, &match.SlotB); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slot B of match %d: %w", match.ID, err)
	}
	if len(result) > 0 {
		match.Result = &models.MatchResult{}
		if err := json.Unmarshal(result, match.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result of match %d: %w", match.ID, err)
		}
	}
	return match, nil
}

func (r *postgresMatchRepository) collectMatches(rows *sql.Rows) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, err := r.scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func marshalResult(result *models.MatchResult) (interface{}, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match result: %w", err)
	}
	return data, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_detailed_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_detailed_tournament_number_key":
			return ErrMatchNumberConflict
		}
	}
	return err
}
