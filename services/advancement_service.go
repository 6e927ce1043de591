package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/playvora/arena-engine/brackets"
	"github.com/playvora/arena-engine/models"
	"github.com/playvora/arena-engine/repositories"
)

// AdvancementService wires an approved match's winner into the downstream
// bracket slot. Resolution follows the structural link written at bracket
// generation time (next match id + slot); the "Winner M{n}" label on the
// placeholder is display-only. A winner feeds at most one downstream slot,
// and the write is idempotent: re-applying the same winner is a no-op.
type AdvancementService interface {
	Advance(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match) error
}

type advancementService struct {
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	stats          StatsService
	audit          AuditRecorder
	hub            Broadcaster
	logger         *slog.Logger
}

func NewAdvancementService(
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	stats StatsService,
	audit AuditRecorder,
	hub Broadcaster,
	logger *slog.Logger,
) AdvancementService {
	if hub == nil {
		hub = NoopBroadcaster()
	}
	return &advancementService{
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		stats:          stats,
		audit:          audit,
		hub:            hub,
		logger:         logger,
	}
}

func (s *advancementService) Advance(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match) error {
	if match.Result == nil {
		return ErrResultMissing
	}
	if match.Format == models.FormatBattleRoyale || match.GroupLabel != nil {
		// Lobby and group-stage matches feed standings, not bracket slots.
		return nil
	}

	winnerSide := match.Result.WinnerSlot()
	if winnerSide == 0 {
		// An aggregate can legitimately end level; the downstream slot stays
		// unresolved for an administrator to settle.
		s.logger.WarnContext(ctx, "approved match ended in a draw, downstream slot left unresolved",
			slog.Int("match_id", match.ID))
		return nil
	}
	winner := match.Slot(winnerSide)
	if !winner.Resolved() {
		return fmt.Errorf("winner slot of match %d is unresolved", match.ID)
	}

	if match.NextMatchID == nil || match.NextSlot == nil {
		// No downstream slot: this was the final.
		return s.completeTournament(ctx, exec, tournament, match, winner)
	}

	next, err := s.matchRepo.GetByID(ctx, exec, *match.NextMatchID)
	if err != nil {
		return mapRepoError(err)
	}

	target := next.Slot(*match.NextSlot)
	if target.Resolved() {
		if *target.TeamID == *winner.TeamID {
			return nil // already advanced, retry-safe
		}
		return fmt.Errorf("%w: match %d slot %d holds team %d", ErrSlotAlreadyResolved, next.ID, *match.NextSlot, *target.TeamID)
	}

	resolved := concreteSlot(*winner.TeamID, winner.TeamName, derefInt(winner.CaptainID))
	if err := s.matchRepo.UpdateSlot(ctx, exec, next.ID, *match.NextSlot, resolved); err != nil {
		return mapRepoError(err)
	}

	s.audit.Record(ctx, exec, models.AuditLogEntry{
		MatchID:      match.ID,
		TournamentID: match.TournamentID,
		Action:       models.AuditActionAdvance,
		ActorID:      systemActorID,
		ActorName:    "system",
		PrevStatus:   match.Status,
		NewStatus:    match.Status,
		Note:         fmt.Sprintf("team %d into match %d slot %d", *winner.TeamID, next.ID, *match.NextSlot),
	})

	s.logger.InfoContext(ctx, "winner advanced",
		slog.Int("match_id", match.ID),
		slog.Int("next_match_id", next.ID),
		slog.Int("slot", *match.NextSlot),
		slog.Int("team_id", *winner.TeamID),
	)
	return nil
}

func (s *advancementService) completeTournament(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match, winner models.MatchSlot) error {
	if tournament.Status == models.TournamentCompleted {
		return nil
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournament.ID, models.TournamentCompleted); err != nil {
		return mapRepoError(err)
	}

	// The champion and the losing finalist get their final placements
	// stamped onto the durable aggregates.
	if err := s.stats.RecordTournamentPlacement(ctx, exec, tournament.Game, *winner.TeamID, tournament.ID, 1); err != nil {
		return err
	}
	if runnerUp := runnerUpSlot(match, *winner.TeamID); runnerUp != nil {
		if err := s.stats.RecordTournamentPlacement(ctx, exec, tournament.Game, *runnerUp.TeamID, tournament.ID, 2); err != nil {
			return err
		}
	}

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournament.ID), brackets.WebSocketMessage{
		Type: brackets.EventTournamentCompleted,
		Payload: map[string]interface{}{
			"tournament_id": tournament.ID,
			"winner_team":   winner,
			"final_match":   match.MatchNumber,
		},
	})
	return nil
}

// runnerUpSlot picks the final's losing side, nil when it cannot be told
// apart (unresolved slot).
func runnerUpSlot(match *models.Match, winnerTeamID int) *models.MatchSlot {
	for _, slot := range []models.MatchSlot{match.SlotA, match.SlotB} {
		if slot.Resolved() && *slot.TeamID != winnerTeamID {
			s := slot
			return &s
		}
	}
	return nil
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
