package brackets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/playvora/arena-engine/models"
)

type node struct {
	team             *SeededTeam
	sourceMatchUID   *string
	isByePlaceholder bool
}

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds a full single-elimination tree in seed order.
// Brackets that are not a power of two get byes in round 1; a bye team is
// carried into the next round directly and no match node is persisted for
// the bye event.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	teams := params.Teams
	n := len(teams)

	if n < 2 {
		return nil, errors.New("not enough teams to generate a single elimination bracket (minimum 2)")
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	sizeOfFullBracket := 1 << uint(numRounds)

	allGeneratedMatches := make([]*BracketMatch, 0, sizeOfFullBracket-1)

	currentRoundNodes := make([]*node, sizeOfFullBracket)
	for i := 0; i < n; i++ {
		t := teams[i]
		currentRoundNodes[i] = &node{team: &t}
	}
	for i := n; i < sizeOfFullBracket; i++ {
		currentRoundNodes[i] = &node{isByePlaceholder: true}
	}

	for r := 1; r <= numRounds; r++ {
		nextRoundNodes := make([]*node, 0, len(currentRoundNodes)/2)
		matchesInThisRound := 0

		for i := 0; i+1 < len(currentRoundNodes); i += 2 {
			node1 := currentRoundNodes[i]
			node2 := currentRoundNodes[i+1]

			currentMatchUID := fmt.Sprintf("R%dM%d", r, matchesInThisRound+1)

			bm := &BracketMatch{
				UID:          currentMatchUID,
				Round:        r,
				OrderInRound: matchesInThisRound + 1,
				Format:       models.FormatHeadToHead,
			}

			switch {
			case node1.team != nil && node2.isByePlaceholder:
				bm.IsBye = true
				bm.ByeTeam = node1.team
				bm.TeamA = node1.team
				nextRoundNodes = append(nextRoundNodes, &node{team: node1.team})

			case node2.team != nil && node1.isByePlaceholder:
				bm.IsBye = true
				bm.ByeTeam = node2.team
				bm.TeamA = node2.team
				nextRoundNodes = append(nextRoundNodes, &node{team: node2.team})

			case node1.isByePlaceholder && node2.isByePlaceholder:
				// Both slots empty. The empty slot moves up so the next
				// round keeps an even node count.
				nextRoundNodes = append(nextRoundNodes, &node{isByePlaceholder: true})
				continue

			case node1.sourceMatchUID != nil && node2.isByePlaceholder:
				// A pending winner against an empty slot: the winner skips
				// this round, no match is played.
				nextRoundNodes = append(nextRoundNodes, node1)
				continue

			case node2.sourceMatchUID != nil && node1.isByePlaceholder:
				nextRoundNodes = append(nextRoundNodes, node2)
				continue

			default:
				if node1.team != nil {
					bm.TeamA = node1.team
				} else if node1.sourceMatchUID != nil {
					bm.SourceMatchAUID = node1.sourceMatchUID
				}
				if node2.team != nil {
					bm.TeamB = node2.team
				} else if node2.sourceMatchUID != nil {
					bm.SourceMatchBUID = node2.sourceMatchUID
				}
				uid := currentMatchUID
				nextRoundNodes = append(nextRoundNodes, &node{sourceMatchUID: &uid})
			}

			allGeneratedMatches = append(allGeneratedMatches, bm)
			matchesInThisRound++
		}
		currentRoundNodes = nextRoundNodes
	}

	if params.Options.TwoLegFirstRound {
		allGeneratedMatches = expandFirstRoundToLegs(allGeneratedMatches)
	}

	sort.Slice(allGeneratedMatches, func(i, j int) bool {
		a, b := allGeneratedMatches[i], allGeneratedMatches[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.OrderInRound != b.OrderInRound {
			return a.OrderInRound < b.OrderInRound
		}
		return legSortKey(a) < legSortKey(b)
	})

	return allGeneratedMatches, nil
}

// expandFirstRoundToLegs turns every playable first-round pairing into leg 1,
// leg 2 with home and away swapped, and keeps the original node as the
// aggregate master that downstream links resolve against.
func expandFirstRoundToLegs(matches []*BracketMatch) []*BracketMatch {
	expanded := make([]*BracketMatch, 0, len(matches)*2)
	for _, bm := range matches {
		if bm.Round != 1 || bm.IsBye || bm.TeamA == nil || bm.TeamB == nil {
			expanded = append(expanded, bm)
			continue
		}

		masterUID := bm.UID
		leg1, leg2 := 1, 2
		expanded = append(expanded,
			&BracketMatch{
				UID:          masterUID + "L1",
				Round:        bm.Round,
				OrderInRound: bm.OrderInRound,
				TeamA:        bm.TeamA,
				TeamB:        bm.TeamB,
				Leg:          &leg1,
				AggregateUID: &masterUID,
				Format:       bm.Format,
				GroupLabel:   bm.GroupLabel,
			},
			&BracketMatch{
				UID:          masterUID + "L2",
				Round:        bm.Round,
				OrderInRound: bm.OrderInRound,
				TeamA:        bm.TeamB, // home/away swapped by convention
				TeamB:        bm.TeamA,
				Leg:          &leg2,
				AggregateUID: &masterUID,
				Format:       bm.Format,
				GroupLabel:   bm.GroupLabel,
			},
		)
		bm.IsAggregateMaster = true
		expanded = append(expanded, bm)
	}
	return expanded
}

func legSortKey(bm *BracketMatch) int {
	if bm.Leg != nil {
		return *bm.Leg - 1 // legs first, in leg order
	}
	return 2 // master (or plain match) after its legs
}
