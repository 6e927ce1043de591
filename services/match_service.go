package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playvora/arena-engine/brackets"
	"github.com/playvora/arena-engine/models"
	"github.com/playvora/arena-engine/points"
	"github.com/playvora/arena-engine/repositories"
)

// TeamStatsInput is one team's raw score line as entered by a captain.
// Points are always computed server-side from the tournament configuration.
type TeamStatsInput struct {
	TeamID    int                       `json:"team_id"`
	Placement int                       `json:"placement"`
	Kills     int                       `json:"kills"`
	Players   []models.PlayerMatchStats `json:"players,omitempty"`
}

type SubmitResultInput struct {
	Winner   models.ResultWinner `json:"winner"`
	ProofURL string              `json:"proof_url"`
	TeamA    TeamStatsInput      `json:"team_a_stats"`
	TeamB    TeamStatsInput      `json:"team_b_stats"`
	Lobby    []TeamStatsInput    `json:"lobby,omitempty"` // battle royale placement table
}

// MatchService owns the match lifecycle state machine:
//
//	scheduled/played -> submitted -> {confirmed | disputed} -> approved | rejected
//
// Every transition is applied with compare-and-set semantics on the status
// column so two concurrent actors cannot both succeed against a stale
// precondition. Approve runs the whole approval pipeline (advancement or
// two-leg aggregation, then stats) inside one transaction.
type MatchService interface {
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	// GetByNumber resolves a match by its tournament-scoped display number,
	// the "M{n}" a placeholder slot names.
	GetByNumber(ctx context.Context, tournamentID, matchNumber int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error)

	Submit(ctx context.Context, matchID, captainID int, input SubmitResultInput) (*models.Match, error)
	Confirm(ctx context.Context, matchID, captainID int) (*models.Match, error)
	Dispute(ctx context.Context, matchID, captainID int, reason string) (*models.Match, error)
	Approve(ctx context.Context, matchID, adminID int, notes string) (*models.Match, error)
	Reject(ctx context.Context, matchID, adminID int, reason string) (*models.Match, error)
	EditResult(ctx context.Context, matchID, adminID int, note string, edit func(*models.MatchResult)) (*models.Match, error)
}

type matchService struct {
	tx             repositories.TxManager
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	advancement    AdvancementService
	aggregate      AggregateService
	stats          StatsService
	audit          AuditRecorder
	hub            Broadcaster
	logger         *slog.Logger
}

func NewMatchService(
	tx repositories.TxManager,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	advancement AdvancementService,
	aggregate AggregateService,
	stats StatsService,
	audit AuditRecorder,
	hub Broadcaster,
	logger *slog.Logger,
) MatchService {
	if hub == nil {
		hub = NoopBroadcaster()
	}
	return &matchService{
		tx:             tx,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		advancement:    advancement,
		aggregate:      aggregate,
		stats:          stats,
		audit:          audit,
		hub:            hub,
		logger:         logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return match, nil
}

func (s *matchService) GetByNumber(ctx context.Context, tournamentID, matchNumber int) (*models.Match, error) {
	match, err := s.matchRepo.GetByNumber(ctx, nil, tournamentID, matchNumber)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

var submitEligible = []models.MatchStatus{models.MatchScheduled, models.MatchPlayed}

func (s *matchService) Submit(ctx context.Context, matchID, captainID int, input SubmitResultInput) (*models.Match, error) {
	if strings.TrimSpace(input.ProofURL) == "" {
		return nil, ErrProofRequired
	}

	var submitted *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return mapRepoError(err)
		}
		if match.Status != models.MatchScheduled && match.Status != models.MatchPlayed {
			return ErrInvalidMatchState
		}

		// A master of a two-leg tie never takes a direct submission: its
		// result is synthesized once both legs are approved.
		legs, err := s.matchRepo.ListByAggregate(ctx, exec, match.ID)
		if err != nil {
			return mapRepoError(err)
		}
		if len(legs) > 0 {
			return ErrAggregateMasterLocked
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
		if err != nil {
			return mapRepoError(err)
		}

		if err := s.authorizeSubmitter(ctx, exec, match, captainID, input); err != nil {
			return err
		}
		if err := s.validateRosters(ctx, exec, input); err != nil {
			return err
		}

		result, err := s.buildResult(tournament, match, captainID, input)
		if err != nil {
			return err
		}

		if err := s.matchRepo.UpdateResultStatus(ctx, exec, match.ID, result, submitEligible, models.MatchSubmitted); err != nil {
			return mapRepoError(err)
		}

		s.audit.Record(ctx, exec, models.AuditLogEntry{
			MatchID:      match.ID,
			TournamentID: match.TournamentID,
			Action:       models.AuditActionSubmit,
			ActorID:      captainID,
			PrevStatus:   match.Status,
			NewStatus:    models.MatchSubmitted,
			Note:         "proof: " + result.ProofURL,
		})

		match.Result = result
		match.Status = models.MatchSubmitted
		submitted = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastMatch(submitted)
	return submitted, nil
}

func (s *matchService) Confirm(ctx context.Context, matchID, captainID int) (*models.Match, error) {
	return s.counterSign(ctx, matchID, captainID, "", false)
}

func (s *matchService) Dispute(ctx context.Context, matchID, captainID int, reason string) (*models.Match, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}
	return s.counterSign(ctx, matchID, captainID, reason, true)
}

// counterSign is the shared Confirm/Dispute path: the caller must captain
// one side of the match and must not be the submitting captain.
func (s *matchService) counterSign(ctx context.Context, matchID, captainID int, reason string, dispute bool) (*models.Match, error) {
	var updated *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return mapRepoError(err)
		}
		if match.Status != models.MatchSubmitted {
			return ErrInvalidMatchState
		}
		if match.Result == nil {
			return ErrResultMissing
		}
		if match.CaptainSide(captainID) == 0 {
			return ErrNotMatchCaptain
		}
		if match.Result.SubmittedBy == captainID {
			return ErrSelfConfirmation
		}

		now := time.Now()
		next := models.MatchConfirmed
		action := models.AuditActionConfirm
		note := ""
		if dispute {
			next = models.MatchDisputed
			action = models.AuditActionDispute
			note = reason
			match.Result.Dispute = &models.DisputeInfo{
				Reason:     reason,
				DisputedBy: captainID,
				DisputedAt: now,
			}
		} else {
			match.Result.ConfirmedBy = &captainID
			match.Result.ConfirmedAt = &now
		}

		if err := s.matchRepo.UpdateResultStatus(ctx, exec, match.ID, match.Result,
			[]models.MatchStatus{models.MatchSubmitted}, next); err != nil {
			return mapRepoError(err)
		}

		s.audit.Record(ctx, exec, models.AuditLogEntry{
			MatchID:      match.ID,
			TournamentID: match.TournamentID,
			Action:       action,
			ActorID:      captainID,
			PrevStatus:   models.MatchSubmitted,
			NewStatus:    next,
			Note:         note,
		})

		match.Status = next
		updated = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastMatch(updated)
	return updated, nil
}

var approveEligible = []models.MatchStatus{models.MatchSubmitted, models.MatchConfirmed, models.MatchDisputed}

func (s *matchService) Approve(ctx context.Context, matchID, adminID int, notes string) (*models.Match, error) {
	var approved *models.Match
	var tournamentID int
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return mapRepoError(err)
		}
		if !approvable(match.Status) {
			// Includes re-approving an already approved match: rejected, not
			// re-applied, so advancement and stats never run twice.
			return ErrInvalidMatchState
		}
		if match.Result == nil {
			return ErrResultMissing
		}

		tournament, err := s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		tournamentID = tournament.ID

		prev := match.Status
		match.Result.Approval = &models.ApprovalInfo{
			ApprovedBy: adminID,
			Notes:      notes,
			ApprovedAt: time.Now(),
		}

		if err := s.matchRepo.UpdateResultStatus(ctx, exec, match.ID, match.Result, approveEligible, models.MatchApproved); err != nil {
			return mapRepoError(err)
		}
		match.Status = models.MatchApproved

		s.audit.Record(ctx, exec, models.AuditLogEntry{
			MatchID:      match.ID,
			TournamentID: match.TournamentID,
			Action:       models.AuditActionApprove,
			ActorID:      adminID,
			PrevStatus:   prev,
			NewStatus:    models.MatchApproved,
			Note:         notes,
		})

		if match.Leg != nil && match.AggregateID != nil {
			if err := s.aggregate.ResolveIfComplete(ctx, exec, tournament, match); err != nil {
				return err
			}
		} else {
			if err := s.advancement.Advance(ctx, exec, tournament, match); err != nil {
				return err
			}
		}

		if err := s.stats.ApplyApprovedMatch(ctx, exec, tournament, match); err != nil {
			return err
		}

		approved = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventBracketUpdated,
		Payload: approved,
	})
	return approved, nil
}

var rejectEligible = []models.MatchStatus{
	models.MatchScheduled, models.MatchPlayed, models.MatchSubmitted,
	models.MatchConfirmed, models.MatchDisputed,
}

func (s *matchService) Reject(ctx context.Context, matchID, adminID int, reason string) (*models.Match, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	var rejected *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return mapRepoError(err)
		}
		if match.Status.Terminal() {
			return ErrInvalidMatchState
		}

		prev := match.Status
		if match.Result != nil {
			match.Result.RejectionReason = &reason
		}

		if err := s.matchRepo.UpdateResultStatus(ctx, exec, match.ID, match.Result, rejectEligible, models.MatchRejected); err != nil {
			return mapRepoError(err)
		}

		s.audit.Record(ctx, exec, models.AuditLogEntry{
			MatchID:      match.ID,
			TournamentID: match.TournamentID,
			Action:       models.AuditActionReject,
			ActorID:      adminID,
			PrevStatus:   prev,
			NewStatus:    models.MatchRejected,
			Note:         reason,
		})

		match.Status = models.MatchRejected
		rejected = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastMatch(rejected)
	return rejected, nil
}

// EditResult lets an administrator adjust an existing result in place. The
// change is appended to the result's edit history; the single result object
// is mutated, never replaced.
func (s *matchService) EditResult(ctx context.Context, matchID, adminID int, note string, edit func(*models.MatchResult)) (*models.Match, error) {
	var edited *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return mapRepoError(err)
		}
		if match.Result == nil {
			return ErrResultMissing
		}

		edit(match.Result)
		match.Result.EditHistory = append(match.Result.EditHistory, models.ResultEdit{
			EditedBy: adminID,
			EditedAt: time.Now(),
			Note:     note,
		})

		if err := s.matchRepo.UpdateResultStatus(ctx, exec, match.ID, match.Result,
			[]models.MatchStatus{match.Status}, match.Status); err != nil {
			return mapRepoError(err)
		}

		s.audit.Record(ctx, exec, models.AuditLogEntry{
			MatchID:      match.ID,
			TournamentID: match.TournamentID,
			Action:       models.AuditActionEdit,
			ActorID:      adminID,
			PrevStatus:   match.Status,
			NewStatus:    match.Status,
			Note:         note,
		})

		edited = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastMatch(edited)
	return edited, nil
}

func approvable(status models.MatchStatus) bool {
	return status == models.MatchSubmitted || status == models.MatchConfirmed || status == models.MatchDisputed
}

// authorizeSubmitter checks the submitting captain. Head-to-head matches
// require the captain of one of the two slots. Battle royale lobbies have no
// slots, so any captain of a team appearing in the submitted table may file.
func (s *matchService) authorizeSubmitter(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, captainID int, input SubmitResultInput) error {
	if match.Format == models.FormatBattleRoyale {
		for _, line := range input.Lobby {
			team, err := s.teamRepo.GetByID(ctx, exec, line.TeamID)
			if err != nil {
				return mapRepoError(err)
			}
			if team.CaptainID == captainID {
				return nil
			}
		}
		return ErrNotMatchCaptain
	}

	if match.CaptainSide(captainID) == 0 {
		return ErrNotMatchCaptain
	}
	return nil
}

// validateRosters rejects player lines naming players outside the team's
// roster. Teams with no roster on file are not checked.
func (s *matchService) validateRosters(ctx context.Context, exec repositories.SQLExecutor, input SubmitResultInput) error {
	sides := []TeamStatsInput{input.TeamA, input.TeamB}
	if len(input.Lobby) > 0 {
		sides = input.Lobby
	}
	for _, side := range sides {
		if len(side.Players) == 0 {
			continue
		}
		roster, err := s.teamRepo.GetRoster(ctx, exec, side.TeamID)
		if err != nil {
			return mapRepoError(err)
		}
		if len(roster) == 0 {
			continue
		}
		members := make(map[int]bool, len(roster))
		for _, member := range roster {
			members[member.ID] = true
		}
		for _, line := range side.Players {
			if !members[line.PlayerID] {
				return fmt.Errorf("%w: player %d on team %d", ErrPlayerNotOnRoster, line.PlayerID, side.TeamID)
			}
		}
	}
	return nil
}

// buildResult validates the raw input and computes all points server-side.
func (s *matchService) buildResult(tournament *models.Tournament, match *models.Match, captainID int, input SubmitResultInput) (*models.MatchResult, error) {
	now := time.Now()
	result := &models.MatchResult{
		Winner:      input.Winner,
		SubmittedBy: captainID,
		SubmittedAt: now,
		ProofURL:    strings.TrimSpace(input.ProofURL),
	}

	if match.Format == models.FormatBattleRoyale {
		if len(input.Lobby) == 0 {
			return nil, fmt.Errorf("%w: battle royale result needs a placement table", ErrInvalidScores)
		}
		for _, line := range input.Lobby {
			block, err := buildTeamBlock(tournament, match.Format, line, points.OutcomeLoss)
			if err != nil {
				return nil, err
			}
			result.Lobby = append(result.Lobby, *block)
		}
		return result, nil
	}

	switch input.Winner {
	case models.WinnerTeamA, models.WinnerTeamB:
	case models.WinnerDraw:
		if !drawAllowed(match) {
			return nil, ErrWinnerRequired
		}
	default:
		return nil, fmt.Errorf("%w: unknown winner %q", ErrInvalidScores, input.Winner)
	}

	if !match.SlotA.Resolved() || !match.SlotB.Resolved() {
		return nil, fmt.Errorf("%w: both slots must be resolved before a result can be submitted", ErrInvalidScores)
	}
	if input.TeamA.TeamID != *match.SlotA.TeamID || input.TeamB.TeamID != *match.SlotB.TeamID {
		return nil, fmt.Errorf("%w: stats blocks do not match the competing teams", ErrInvalidScores)
	}

	blockA, err := buildTeamBlock(tournament, match.Format, input.TeamA, points.OutcomeForSlot(input.Winner, models.SlotA))
	if err != nil {
		return nil, err
	}
	blockB, err := buildTeamBlock(tournament, match.Format, input.TeamB, points.OutcomeForSlot(input.Winner, models.SlotB))
	if err != nil {
		return nil, err
	}
	blockA.TeamName = match.SlotA.TeamName
	blockB.TeamName = match.SlotB.TeamName
	result.TeamA = *blockA
	result.TeamB = *blockB
	return result, nil
}

func buildTeamBlock(tournament *models.Tournament, format models.MatchFormat, input TeamStatsInput, outcome points.Outcome) (*models.TeamResultStats, error) {
	if input.Kills < 0 || input.Placement < 0 {
		return nil, fmt.Errorf("%w: negative kills or placement", ErrInvalidScores)
	}
	for _, p := range input.Players {
		if p.Kills < 0 || p.Deaths < 0 || p.Assists < 0 || p.Damage < 0 || p.Headshots < 0 {
			return nil, fmt.Errorf("%w: negative player line for player %d", ErrInvalidScores, p.PlayerID)
		}
	}

	breakdown := points.ComputeTeamPoints(tournament.PointsConfig, format, input.Placement, input.Kills, outcome)
	block := &models.TeamResultStats{
		TeamID:          input.TeamID,
		Placement:       input.Placement,
		Kills:           input.Kills,
		PlacementPoints: breakdown.PlacementPoints,
		KillPoints:      breakdown.KillPoints,
		TotalPoints:     breakdown.TotalPoints,
		Players:         input.Players,
	}

	// Each player's share of the team total is split evenly across the
	// roster lines present in this match.
	if n := len(block.Players); n > 0 {
		share := float64(block.TotalPoints) / float64(n)
		for i := range block.Players {
			block.Players[i].Points = share
		}
	}
	return block, nil
}

// drawAllowed: draws are legal for two-leg legs (settled on aggregate) and
// group-stage matches; a knockout match must produce a winner.
func drawAllowed(match *models.Match) bool {
	return match.Leg != nil || match.GroupLabel != nil
}

func (s *matchService) broadcastMatch(match *models.Match) {
	if match == nil {
		return
	}
	s.hub.BroadcastToRoom(brackets.RoomForTournament(match.TournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventMatchUpdated,
		Payload: match,
	})
}
