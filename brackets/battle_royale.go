package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/playvora/arena-engine/models"
)

// BattleRoyaleGenerator produces one lobby match per round. Lobby matches
// have no competitor slots; every registered team plays and the result
// document carries the full placement table.
type BattleRoyaleGenerator struct {
}

func NewBattleRoyaleGenerator() BracketGenerator {
	return &BattleRoyaleGenerator{}
}

func (g *BattleRoyaleGenerator) GetName() string {
	return "BattleRoyale"
}

func (g *BattleRoyaleGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	if len(params.Teams) < 2 {
		return nil, errors.New("not enough teams for a battle royale series (minimum 2)")
	}

	rounds := params.Options.Rounds
	if rounds <= 0 {
		rounds = 1
	}

	matches := make([]*BracketMatch, 0, rounds)
	for r := 1; r <= rounds; r++ {
		matches = append(matches, &BracketMatch{
			UID:          fmt.Sprintf("R%dM1", r),
			Round:        r,
			OrderInRound: 1,
			Format:       models.FormatBattleRoyale,
		})
	}
	return matches, nil
}
