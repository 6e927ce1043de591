package brackets

import (
	"fmt"
	"sort"
)

// GroupStandingEntry is one team's line of a finished group stage.
type GroupStandingEntry struct {
	Team   SeededTeam
	Group  string
	Rank   int // 1-based position inside the group
	Points int
}

// SeedFromGroups converts group standings into the seed order consumed by
// the single-elimination generator. The top `qualifiers` of every group
// advance; the order interleaves group winners with runners-up of the
// neighbouring group so first-round pairings cross groups (A1–B2, B1–A2, …).
func SeedFromGroups(standings []GroupStandingEntry, qualifiers int) ([]SeededTeam, error) {
	if qualifiers < 1 {
		return nil, fmt.Errorf("qualifiers per group must be positive, got %d", qualifiers)
	}

	byGroup := make(map[string][]GroupStandingEntry)
	for _, entry := range standings {
		byGroup[entry.Group] = append(byGroup[entry.Group], entry)
	}

	groups := make([]string, 0, len(byGroup))
	for label := range byGroup {
		groups = append(groups, label)
	}
	sort.Strings(groups)

	for _, label := range groups {
		entries := byGroup[label]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
		if len(entries) < qualifiers {
			return nil, fmt.Errorf("group %s has %d teams, need %d qualifiers", label, len(entries), qualifiers)
		}
		byGroup[label] = entries[:qualifiers]
	}

	// Pair group i's winner against group i+1's runner-up and vice versa.
	// With an odd group count the last group pairs back onto the first.
	seeds := make([]SeededTeam, 0, len(groups)*qualifiers)
	for i, label := range groups {
		partner := groups[(i+1)%len(groups)]
		for rank := 0; rank < qualifiers; rank++ {
			if rank%2 == 0 {
				seeds = append(seeds, byGroup[label][rank].Team)
			} else {
				seeds = append(seeds, byGroup[partner][rank].Team)
			}
		}
	}

	for i := range seeds {
		seeds[i].Seed = i + 1
	}
	return seeds, nil
}
