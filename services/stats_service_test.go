package services

import (
	"context"
	"errors"
	"testing"

	"github.com/playvora/arena-engine/models"
)

func approvedMatch(winner models.ResultWinner) *models.Match {
	return &models.Match{
		ID: 1, TournamentID: 1,
		Format: models.FormatHeadToHead,
		Status: models.MatchApproved,
		Result: &models.MatchResult{
			Winner: winner,
			TeamA: models.TeamResultStats{
				TeamID: teamAlpha, Kills: 16, TotalPoints: 3,
				Players: []models.PlayerMatchStats{
					{PlayerID: 101, Kills: 10, Deaths: 4, Assists: 2, Headshots: 5, MVP: true, Points: 1.5},
					{PlayerID: 102, Kills: 6, Deaths: 8, Points: 1.5},
				},
			},
			TeamB: models.TeamResultStats{TeamID: teamBravo, Kills: 12},
		},
	}
}

func TestApplyApprovedMatchIncrementsBothTeams(t *testing.T) {
	repo := newFakeStatsRepo()
	svc := NewStatsService(repo, testLogger())

	if err := svc.ApplyApprovedMatch(context.Background(), nil, testTournament(), approvedMatch(models.WinnerTeamA)); err != nil {
		t.Fatalf("ApplyApprovedMatch() error: %v", err)
	}

	alpha := repo.teamStats[models.StatsKey(teamAlpha, "cs2")]
	if alpha.MatchesPlayed != 1 || alpha.Wins != 1 || alpha.TotalPoints != 3 || alpha.TotalKills != 16 {
		t.Errorf("alpha = %+v", alpha)
	}
	if alpha.WinRate != 1 || alpha.AvgKills != 16 {
		t.Errorf("alpha derived = winrate %v, avgkills %v", alpha.WinRate, alpha.AvgKills)
	}
	bravo := repo.teamStats[models.StatsKey(teamBravo, "cs2")]
	if bravo.Losses != 1 || bravo.Wins != 0 {
		t.Errorf("bravo = %+v", bravo)
	}
}

func TestApplyApprovedMatchAccumulatesAcrossMatches(t *testing.T) {
	repo := newFakeStatsRepo()
	svc := NewStatsService(repo, testLogger())

	if err := svc.ApplyApprovedMatch(context.Background(), nil, testTournament(), approvedMatch(models.WinnerTeamA)); err != nil {
		t.Fatalf("first apply error: %v", err)
	}
	if err := svc.ApplyApprovedMatch(context.Background(), nil, testTournament(), approvedMatch(models.WinnerTeamB)); err != nil {
		t.Fatalf("second apply error: %v", err)
	}

	alpha := repo.teamStats[models.StatsKey(teamAlpha, "cs2")]
	if alpha.MatchesPlayed != 2 || alpha.Wins != 1 || alpha.Losses != 1 {
		t.Errorf("alpha = %+v", alpha)
	}
	if alpha.WinRate != 0.5 || alpha.AvgKills != 16 {
		t.Errorf("alpha derived = winrate %v, avgkills %v", alpha.WinRate, alpha.AvgKills)
	}
}

func TestApplyApprovedMatchTracksPlayerLines(t *testing.T) {
	repo := newFakeStatsRepo()
	svc := NewStatsService(repo, testLogger())

	if err := svc.ApplyApprovedMatch(context.Background(), nil, testTournament(), approvedMatch(models.WinnerTeamA)); err != nil {
		t.Fatalf("ApplyApprovedMatch() error: %v", err)
	}

	p := repo.playerStats[models.StatsKey(101, "cs2")]
	if p.Kills != 10 || p.Deaths != 4 || p.Assists != 2 || p.Headshots != 5 || p.MVPCount != 1 {
		t.Errorf("player 101 = %+v", p)
	}
	if p.KDRatio != 2.5 || p.Wins != 1 || p.TotalPoints != 1.5 {
		t.Errorf("player 101 derived = %+v", p)
	}
}

func TestKDRatioWithoutDeathsIsRawKills(t *testing.T) {
	repo := newFakeStatsRepo()
	svc := NewStatsService(repo, testLogger())

	match := approvedMatch(models.WinnerTeamA)
	match.Result.TeamA.Players = []models.PlayerMatchStats{{PlayerID: 201, Kills: 7, Deaths: 0}}

	if err := svc.ApplyApprovedMatch(context.Background(), nil, testTournament(), match); err != nil {
		t.Fatalf("ApplyApprovedMatch() error: %v", err)
	}
	if p := repo.playerStats[models.StatsKey(201, "cs2")]; p.KDRatio != 7 {
		t.Errorf("kd = %v, want 7 when the player never died", p.KDRatio)
	}
}

func TestDrawCountsForBothSides(t *testing.T) {
	repo := newFakeStatsRepo()
	svc := NewStatsService(repo, testLogger())

	if err := svc.ApplyApprovedMatch(context.Background(), nil, testTournament(), approvedMatch(models.WinnerDraw)); err != nil {
		t.Fatalf("ApplyApprovedMatch() error: %v", err)
	}
	alpha := repo.teamStats[models.StatsKey(teamAlpha, "cs2")]
	bravo := repo.teamStats[models.StatsKey(teamBravo, "cs2")]
	if alpha.Draws != 1 || bravo.Draws != 1 || alpha.Wins != 0 || bravo.Wins != 0 {
		t.Errorf("alpha = %+v, bravo = %+v", alpha, bravo)
	}
}

func TestBattleRoyaleOnlyFirstPlaceWins(t *testing.T) {
	repo := newFakeStatsRepo()
	svc := NewStatsService(repo, testLogger())

	match := &models.Match{
		ID: 1, TournamentID: 1,
		Format: models.FormatBattleRoyale,
		Status: models.MatchApproved,
		Result: &models.MatchResult{
			Lobby: []models.TeamResultStats{
				{TeamID: 31, Placement: 1, Kills: 9, TotalPoints: 28},
				{TeamID: 32, Placement: 2, Kills: 7, TotalPoints: 20},
				{TeamID: 33, Placement: 7, Kills: 1, TotalPoints: 2},
			},
		},
	}
	tournament := testTournament()
	tournament.Game = "pubg"

	if err := svc.ApplyApprovedMatch(context.Background(), nil, tournament, match); err != nil {
		t.Fatalf("ApplyApprovedMatch() error: %v", err)
	}

	if s := repo.teamStats[models.StatsKey(31, "pubg")]; s.Wins != 1 {
		t.Errorf("placement 1 = %+v, want a win", s)
	}
	for _, teamID := range []int{32, 33} {
		if s := repo.teamStats[models.StatsKey(teamID, "pubg")]; s.Wins != 0 || s.Losses != 1 {
			t.Errorf("team %d = %+v, want a loss", teamID, s)
		}
	}
}

func TestApplyApprovedMatchRequiresResult(t *testing.T) {
	svc := NewStatsService(newFakeStatsRepo(), testLogger())
	err := svc.ApplyApprovedMatch(context.Background(), nil, testTournament(), &models.Match{ID: 1})
	if !errors.Is(err, ErrResultMissing) {
		t.Fatalf("err = %v, want ErrResultMissing", err)
	}
}

func TestGetTeamStatsMapsMissingToNotFound(t *testing.T) {
	svc := NewStatsService(newFakeStatsRepo(), testLogger())
	if _, err := svc.GetTeamStats(context.Background(), 404, "cs2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetPlayerStats(context.Background(), 404, "cs2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
