package brackets

import (
	"context"

	"github.com/playvora/arena-engine/models"
)

// SeededTeam is one competitor entering the bracket, in seed order.
type SeededTeam struct {
	TeamID    int
	Name      string
	CaptainID int
	Seed      int
}

// BracketMatch is one generated node of the bracket graph. UIDs are local to
// the generation run ("R1M2", legs "R1M2L1"); the bracket service maps them
// to database ids and sequential match numbers when persisting.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int

	TeamA *SeededTeam
	TeamB *SeededTeam

	SourceMatchAUID *string
	SourceMatchBUID *string

	IsBye   bool
	ByeTeam *SeededTeam

	// Two-leg ties: legs carry Leg 1/2 and point at their master via
	// AggregateUID. The master keeps the downstream source links.
	Leg               *int
	AggregateUID      *string
	IsAggregateMaster bool

	Format     models.MatchFormat
	GroupLabel *string
}

type GenerateOptions struct {
	// TwoLegFirstRound expands every first-round pairing into two legs with
	// swapped home/away plus an aggregate master match.
	TwoLegFirstRound bool
	// Rounds is the number of lobby rounds for battle royale brackets.
	Rounds int
}

type GenerateBracketParams struct {
	Tournament *models.Tournament
	Teams      []SeededTeam
	Options    GenerateOptions
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}
