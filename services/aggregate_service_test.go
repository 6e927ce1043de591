package services

import (
	"context"
	"testing"

	"github.com/playvora/arena-engine/models"
)

type aggregateFixture struct {
	matchRepo *fakeMatchRepo
	auditRepo *fakeAuditRepo
	service   AggregateService

	master, leg1, leg2, final *models.Match
}

// newAggregateFixture installs a two-leg pair feeding a master, with the
// master linked into slot A of a downstream final. Leg 2 has home and away
// swapped, the way the generator builds it.
func newAggregateFixture(t *testing.T) *aggregateFixture {
	t.Helper()
	f := &aggregateFixture{
		matchRepo: newFakeMatchRepo(),
		auditRepo: &fakeAuditRepo{},
	}

	f.final = f.matchRepo.add(&models.Match{
		ID: 10, TournamentID: 1, Round: 2, MatchNumber: 3,
		Format: models.FormatHeadToHead,
		Status: models.MatchScheduled,
		SlotA:  models.MatchSlot{SourceMatchNumber: intPtr(1)},
		SlotB:  models.MatchSlot{SourceMatchNumber: intPtr(2)},
	})
	f.master = f.matchRepo.add(&models.Match{
		ID: 1, TournamentID: 1, Round: 1, MatchNumber: 1,
		Format:      models.FormatHeadToHead,
		Status:      models.MatchScheduled,
		SlotA:       concreteSlot(teamAlpha, "Alpha", captAlpha),
		SlotB:       concreteSlot(teamBravo, "Bravo", captBravo),
		NextMatchID: &f.final.ID,
		NextSlot:    intPtr(models.SlotA),
	})
	f.leg1 = f.matchRepo.add(&models.Match{
		ID: 2, TournamentID: 1, Round: 1, MatchNumber: 1,
		Format:      models.FormatHeadToHead,
		Status:      models.MatchScheduled,
		Leg:         intPtr(1),
		AggregateID: &f.master.ID,
		SlotA:       concreteSlot(teamAlpha, "Alpha", captAlpha),
		SlotB:       concreteSlot(teamBravo, "Bravo", captBravo),
	})
	f.leg2 = f.matchRepo.add(&models.Match{
		ID: 3, TournamentID: 1, Round: 1, MatchNumber: 1,
		Format:      models.FormatHeadToHead,
		Status:      models.MatchScheduled,
		Leg:         intPtr(2),
		AggregateID: &f.master.ID,
		SlotA:       concreteSlot(teamBravo, "Bravo", captBravo),
		SlotB:       concreteSlot(teamAlpha, "Alpha", captAlpha),
	})

	logger := testLogger()
	audit := NewAuditRecorder(f.auditRepo, logger)
	stats := NewStatsService(newFakeStatsRepo(), logger)
	advancement := NewAdvancementService(f.matchRepo, newFakeTournamentRepo(testTournament()), stats, audit, nil, logger)
	f.service = NewAggregateService(f.matchRepo, advancement, audit, logger)
	return f
}

func approveLeg(f *aggregateFixture, leg *models.Match, winner models.ResultWinner, pointsA, pointsB, killsA, killsB int) *models.Match {
	stored := f.matchRepo.matches[leg.ID]
	stored.Status = models.MatchApproved
	stored.Result = &models.MatchResult{
		Winner: winner,
		TeamA:  models.TeamResultStats{TeamID: derefInt(stored.SlotA.TeamID), TotalPoints: pointsA, Kills: killsA},
		TeamB:  models.TeamResultStats{TeamID: derefInt(stored.SlotB.TeamID), TotalPoints: pointsB, Kills: killsB},
	}
	return stored
}

func TestResolveWaitsForSiblingLeg(t *testing.T) {
	f := newAggregateFixture(t)
	leg1 := approveLeg(f, f.leg1, models.WinnerTeamA, 3, 0, 16, 12)

	if err := f.service.ResolveIfComplete(context.Background(), nil, testTournament(), leg1); err != nil {
		t.Fatalf("ResolveIfComplete() error: %v", err)
	}
	if got := f.matchRepo.matches[f.master.ID].Status; got != models.MatchScheduled {
		t.Errorf("master status = %s, want scheduled while leg 2 is open", got)
	}
}

func TestResolveSettlesMasterWithInvertedTotals(t *testing.T) {
	f := newAggregateFixture(t)
	// Leg 1: Alpha (home) wins 3-0. Leg 2: Bravo is home, Alpha away wins
	// again, so the away block carries Alpha's points.
	approveLeg(f, f.leg1, models.WinnerTeamA, 3, 0, 16, 12)
	leg2 := approveLeg(f, f.leg2, models.WinnerTeamB, 0, 3, 9, 14)

	if err := f.service.ResolveIfComplete(context.Background(), nil, testTournament(), leg2); err != nil {
		t.Fatalf("ResolveIfComplete() error: %v", err)
	}

	master := f.matchRepo.matches[f.master.ID]
	if master.Status != models.MatchApproved {
		t.Fatalf("master status = %s, want approved", master.Status)
	}
	if master.Result.Winner != models.WinnerTeamA {
		t.Errorf("winner = %s, want team_a", master.Result.Winner)
	}
	if master.Result.TeamA.TotalPoints != 6 || master.Result.TeamB.TotalPoints != 0 {
		t.Errorf("totals = %d-%d, want 6-0",
			master.Result.TeamA.TotalPoints, master.Result.TeamB.TotalPoints)
	}
	if master.Result.TeamA.Kills != 16+14 || master.Result.TeamB.Kills != 12+9 {
		t.Errorf("kills = %d-%d, want 30-21",
			master.Result.TeamA.Kills, master.Result.TeamB.Kills)
	}
	if master.Result.SubmittedBy != systemActorID {
		t.Errorf("submitted_by = %d, want system actor", master.Result.SubmittedBy)
	}

	// The aggregate winner moves into the final via the master's link.
	final := f.matchRepo.matches[f.final.ID]
	if !final.SlotA.Resolved() || *final.SlotA.TeamID != teamAlpha {
		t.Errorf("final slot A = %+v, want team %d", final.SlotA, teamAlpha)
	}

	foundAggregate := false
	for _, e := range f.auditRepo.entries {
		if e.Action == models.AuditActionAggregate && e.MatchID == f.master.ID {
			foundAggregate = true
		}
	}
	if !foundAggregate {
		t.Error("no aggregate audit entry recorded on the master")
	}
}

func TestResolveLevelAggregateLeavesSlotOpen(t *testing.T) {
	f := newAggregateFixture(t)
	approveLeg(f, f.leg1, models.WinnerTeamA, 3, 0, 10, 8)
	leg2 := approveLeg(f, f.leg2, models.WinnerTeamA, 3, 0, 8, 10)

	if err := f.service.ResolveIfComplete(context.Background(), nil, testTournament(), leg2); err != nil {
		t.Fatalf("ResolveIfComplete() error: %v", err)
	}

	master := f.matchRepo.matches[f.master.ID]
	if master.Result.Winner != models.WinnerDraw {
		t.Errorf("winner = %s, want draw", master.Result.Winner)
	}
	// Level on aggregate: an administrator settles the tie by hand, the
	// downstream slot stays open.
	if f.matchRepo.matches[f.final.ID].SlotA.Resolved() {
		t.Error("final slot must stay unresolved after a level aggregate")
	}
}

func TestResolveIsRetrySafeOnSettledMaster(t *testing.T) {
	f := newAggregateFixture(t)
	approveLeg(f, f.leg1, models.WinnerTeamA, 3, 0, 16, 12)
	leg2 := approveLeg(f, f.leg2, models.WinnerTeamB, 0, 3, 9, 14)

	if err := f.service.ResolveIfComplete(context.Background(), nil, testTournament(), leg2); err != nil {
		t.Fatalf("first resolve error: %v", err)
	}
	entries := len(f.auditRepo.entries)

	if err := f.service.ResolveIfComplete(context.Background(), nil, testTournament(), leg2); err != nil {
		t.Fatalf("second resolve error: %v", err)
	}
	if len(f.auditRepo.entries) != entries {
		t.Errorf("retry appended %d audit entries", len(f.auditRepo.entries)-entries)
	}
}

func TestResolveIgnoresNonLegMatches(t *testing.T) {
	f := newAggregateFixture(t)
	plain := &models.Match{ID: 99, Status: models.MatchApproved}
	if err := f.service.ResolveIfComplete(context.Background(), nil, testTournament(), plain); err != nil {
		t.Fatalf("ResolveIfComplete() error: %v", err)
	}
}
