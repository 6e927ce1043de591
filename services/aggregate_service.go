package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playvora/arena-engine/models"
	"github.com/playvora/arena-engine/repositories"
)

// systemActorID marks transitions performed by the engine itself (aggregate
// resolution) in audit entries.
const systemActorID = 0

// AggregateService settles two-leg ties. When the second leg of a pair is
// approved it synthesizes the combined result on the master match, approves
// it, and advances the aggregate winner using the master's own bracket link.
//
// Aggregate totals invert home/away: leg 2 swaps sides by convention, so
//
//	master teamA = leg1.teamA + leg2.teamB
//	master teamB = leg1.teamB + leg2.teamA
type AggregateService interface {
	// ResolveIfComplete is a no-op while the sibling leg is still unapproved.
	ResolveIfComplete(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, leg *models.Match) error
}

type aggregateService struct {
	matchRepo   repositories.MatchRepository
	advancement AdvancementService
	audit       AuditRecorder
	logger      *slog.Logger
}

// NewAggregateService builds the two-leg resolver. The synthesized master
// result is not fed to the stats aggregator: both legs were already counted
// when they were individually approved.
func NewAggregateService(
	matchRepo repositories.MatchRepository,
	advancement AdvancementService,
	audit AuditRecorder,
	logger *slog.Logger,
) AggregateService {
	return &aggregateService{
		matchRepo:   matchRepo,
		advancement: advancement,
		audit:       audit,
		logger:      logger,
	}
}

func (s *aggregateService) ResolveIfComplete(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, leg *models.Match) error {
	if leg.Leg == nil || leg.AggregateID == nil {
		return nil
	}

	legs, err := s.matchRepo.ListByAggregate(ctx, exec, *leg.AggregateID)
	if err != nil {
		return fmt.Errorf("failed to load legs of aggregate %d: %w", *leg.AggregateID, err)
	}

	var leg1, leg2 *models.Match
	for _, m := range legs {
		if m.Leg == nil {
			continue
		}
		switch *m.Leg {
		case 1:
			leg1 = m
		case 2:
			leg2 = m
		}
	}
	if leg1 == nil || leg2 == nil {
		return fmt.Errorf("%w: aggregate %d", ErrAggregateLegMissing, *leg.AggregateID)
	}

	// The leg that triggered this call was updated in the current
	// transaction; make sure we judge its fresh status.
	if leg.ID == leg1.ID {
		leg1 = leg
	} else if leg.ID == leg2.ID {
		leg2 = leg
	}

	if leg1.Status != models.MatchApproved || leg2.Status != models.MatchApproved {
		return nil // waiting for the other leg
	}
	if leg1.Result == nil || leg2.Result == nil {
		return ErrResultMissing
	}

	master, err := s.matchRepo.GetByID(ctx, exec, *leg.AggregateID)
	if err != nil {
		return mapRepoError(err)
	}
	if master.Status == models.MatchApproved {
		return nil // already settled, retry-safe
	}

	totalA := leg1.Result.TeamA.TotalPoints + leg2.Result.TeamB.TotalPoints
	totalB := leg1.Result.TeamB.TotalPoints + leg2.Result.TeamA.TotalPoints

	winner := models.WinnerDraw
	switch {
	case totalA > totalB:
		winner = models.WinnerTeamA
	case totalB > totalA:
		winner = models.WinnerTeamB
	}

	now := time.Now()
	result := &models.MatchResult{
		Winner:      winner,
		SubmittedBy: systemActorID,
		SubmittedAt: now,
		ProofURL:    leg2.Result.ProofURL,
		TeamA: models.TeamResultStats{
			TeamID:      derefInt(master.SlotA.TeamID),
			TeamName:    master.SlotA.TeamName,
			TotalPoints: totalA,
			Kills:       leg1.Result.TeamA.Kills + leg2.Result.TeamB.Kills,
		},
		TeamB: models.TeamResultStats{
			TeamID:      derefInt(master.SlotB.TeamID),
			TeamName:    master.SlotB.TeamName,
			TotalPoints: totalB,
			Kills:       leg1.Result.TeamB.Kills + leg2.Result.TeamA.Kills,
		},
		Approval: &models.ApprovalInfo{
			ApprovedBy: systemActorID,
			Notes:      fmt.Sprintf("aggregate of legs M%d and M%d", leg1.MatchNumber, leg2.MatchNumber),
			ApprovedAt: now,
		},
	}

	if err := s.matchRepo.UpdateResultStatus(ctx, exec, master.ID, result,
		[]models.MatchStatus{models.MatchScheduled}, models.MatchApproved); err != nil {
		return mapRepoError(err)
	}
	master.Result = result
	master.Status = models.MatchApproved

	s.audit.Record(ctx, exec, models.AuditLogEntry{
		MatchID:      master.ID,
		TournamentID: master.TournamentID,
		Action:       models.AuditActionAggregate,
		ActorID:      systemActorID,
		ActorName:    "system",
		PrevStatus:   models.MatchScheduled,
		NewStatus:    models.MatchApproved,
		Note:         fmt.Sprintf("aggregate %d-%d", totalA, totalB),
	})

	s.logger.InfoContext(ctx, "two-leg aggregate resolved",
		slog.Int("master_match_id", master.ID),
		slog.Int("total_a", totalA),
		slog.Int("total_b", totalB),
		slog.String("winner", string(winner)),
	)

	// Advancement is keyed on the master's own link and number, never on the
	// individual legs.
	return s.advancement.Advance(ctx, exec, tournament, master)
}
