package services

import (
	"context"
	"errors"
	"testing"

	"github.com/playvora/arena-engine/models"
)

func approvedKnockoutMatch(nextID, nextSlot int) *models.Match {
	return &models.Match{
		ID: 1, TournamentID: 1, Round: 1, MatchNumber: 1,
		Format:      models.FormatHeadToHead,
		Status:      models.MatchApproved,
		SlotA:       concreteSlot(teamAlpha, "Alpha", captAlpha),
		SlotB:       concreteSlot(teamBravo, "Bravo", captBravo),
		NextMatchID: &nextID,
		NextSlot:    &nextSlot,
		Result: &models.MatchResult{
			Winner: models.WinnerTeamA,
			TeamA:  models.TeamResultStats{TeamID: teamAlpha},
			TeamB:  models.TeamResultStats{TeamID: teamBravo},
		},
	}
}

func TestAdvanceIsIdempotentForSameWinner(t *testing.T) {
	matchRepo := newFakeMatchRepo()
	next := matchRepo.add(&models.Match{
		ID: 2, TournamentID: 1, Round: 2, MatchNumber: 2,
		Status: models.MatchScheduled,
		SlotA:  models.MatchSlot{SourceMatchNumber: intPtr(1)},
	})
	match := matchRepo.add(approvedKnockoutMatch(next.ID, models.SlotA))
	svc := NewAdvancementService(matchRepo, newFakeTournamentRepo(testTournament()), NewStatsService(newFakeStatsRepo(), testLogger()), NewAuditRecorder(&fakeAuditRepo{}, testLogger()), nil, testLogger())

	for i := 0; i < 2; i++ {
		if err := svc.Advance(context.Background(), nil, testTournament(), match); err != nil {
			t.Fatalf("Advance() run %d error: %v", i+1, err)
		}
	}
	if got := matchRepo.matches[next.ID].SlotA; *got.TeamID != teamAlpha {
		t.Errorf("slot = %+v, want team %d", got, teamAlpha)
	}
}

func TestAdvanceRejectsConflictingWinner(t *testing.T) {
	matchRepo := newFakeMatchRepo()
	next := matchRepo.add(&models.Match{
		ID: 2, TournamentID: 1, Round: 2, MatchNumber: 2,
		Status: models.MatchScheduled,
		SlotA:  concreteSlot(teamBravo, "Bravo", captBravo),
	})
	match := matchRepo.add(approvedKnockoutMatch(next.ID, models.SlotA))
	svc := NewAdvancementService(matchRepo, newFakeTournamentRepo(testTournament()), NewStatsService(newFakeStatsRepo(), testLogger()), NewAuditRecorder(&fakeAuditRepo{}, testLogger()), nil, testLogger())

	err := svc.Advance(context.Background(), nil, testTournament(), match)
	if !errors.Is(err, ErrSlotAlreadyResolved) {
		t.Fatalf("err = %v, want ErrSlotAlreadyResolved", err)
	}
}

func TestAdvanceSkipsGroupAndLobbyMatches(t *testing.T) {
	matchRepo := newFakeMatchRepo()
	next := matchRepo.add(&models.Match{
		ID: 2, TournamentID: 1, Round: 2, MatchNumber: 2,
		Status: models.MatchScheduled,
		SlotA:  models.MatchSlot{SourceMatchNumber: intPtr(1)},
	})
	group := approvedKnockoutMatch(next.ID, models.SlotA)
	group.GroupLabel = strPtr("A")
	matchRepo.add(group)
	svc := NewAdvancementService(matchRepo, newFakeTournamentRepo(testTournament()), NewStatsService(newFakeStatsRepo(), testLogger()), NewAuditRecorder(&fakeAuditRepo{}, testLogger()), nil, testLogger())

	if err := svc.Advance(context.Background(), nil, testTournament(), group); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if matchRepo.matches[next.ID].SlotA.Resolved() {
		t.Error("group match must feed standings, not bracket slots")
	}
}
