package brackets

import (
	"context"
	"testing"

	"github.com/playvora/arena-engine/models"
)

func standing(group string, rank, teamID int) GroupStandingEntry {
	return GroupStandingEntry{
		Team:  SeededTeam{TeamID: teamID, Name: "T", CaptainID: 100 + teamID},
		Group: group,
		Rank:  rank,
	}
}

func TestSeedFromGroupsCrossPairs(t *testing.T) {
	standings := []GroupStandingEntry{
		standing("A", 1, 1),
		standing("A", 2, 2),
		standing("B", 1, 3),
		standing("B", 2, 4),
	}

	seeds, err := SeedFromGroups(standings, 2)
	if err != nil {
		t.Fatalf("SeedFromGroups() error: %v", err)
	}
	if len(seeds) != 4 {
		t.Fatalf("got %d seeds, want 4", len(seeds))
	}

	// A1, B2, B1, A2: adjacent seeds pair cross-group in round 1.
	wantOrder := []int{1, 4, 3, 2}
	for i, want := range wantOrder {
		if seeds[i].TeamID != want {
			t.Errorf("seeds[%d] = team %d, want %d", i, seeds[i].TeamID, want)
		}
		if seeds[i].Seed != i+1 {
			t.Errorf("seeds[%d].Seed = %d, want %d", i, seeds[i].Seed, i+1)
		}
	}
}

func TestSeedFromGroupsDropsNonQualifiers(t *testing.T) {
	standings := []GroupStandingEntry{
		standing("A", 1, 1),
		standing("A", 2, 2),
		standing("A", 3, 5),
		standing("B", 1, 3),
		standing("B", 2, 4),
		standing("B", 3, 6),
	}

	seeds, err := SeedFromGroups(standings, 2)
	if err != nil {
		t.Fatalf("SeedFromGroups() error: %v", err)
	}
	if len(seeds) != 4 {
		t.Fatalf("got %d seeds, want 4", len(seeds))
	}
	for _, s := range seeds {
		if s.TeamID == 5 || s.TeamID == 6 {
			t.Errorf("third-placed team %d must not qualify", s.TeamID)
		}
	}
}

func TestSeedFromGroupsShortGroup(t *testing.T) {
	standings := []GroupStandingEntry{
		standing("A", 1, 1),
		standing("B", 1, 2),
		standing("B", 2, 3),
	}
	if _, err := SeedFromGroups(standings, 2); err == nil {
		t.Fatal("expected error when a group has fewer teams than qualifiers")
	}
}

func TestBattleRoyaleGeneratorRounds(t *testing.T) {
	g := NewBattleRoyaleGenerator()
	matches, err := g.GenerateBracket(context.Background(), GenerateBracketParams{
		Tournament: &models.Tournament{ID: 1},
		Teams:      seededTeams(8),
		Options:    GenerateOptions{Rounds: 3},
	})
	if err != nil {
		t.Fatalf("GenerateBracket() error: %v", err)
	}

	if len(matches) != 3 {
		t.Fatalf("got %d lobby matches, want 3", len(matches))
	}
	for i, m := range matches {
		if m.Round != i+1 {
			t.Errorf("match %d round = %d, want %d", i, m.Round, i+1)
		}
		if m.Format != models.FormatBattleRoyale {
			t.Errorf("match %d format = %s, want %s", i, m.Format, models.FormatBattleRoyale)
		}
		if m.TeamA != nil || m.TeamB != nil {
			t.Errorf("lobby match %d must not carry slots", i)
		}
	}
}
