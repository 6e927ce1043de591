package models

import (
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchPlayed    MatchStatus = "played"
	MatchSubmitted MatchStatus = "submitted"
	MatchConfirmed MatchStatus = "confirmed"
	MatchDisputed  MatchStatus = "disputed"
	MatchApproved  MatchStatus = "approved"
	MatchRejected  MatchStatus = "rejected"
)

// Terminal reports whether no further transition is possible for the status.
func (s MatchStatus) Terminal() bool {
	return s == MatchApproved || s == MatchRejected
}

type MatchFormat string

const (
	FormatHeadToHead   MatchFormat = "head_to_head"
	FormatBattleRoyale MatchFormat = "battle_royale"
)

// Slot numbers for structural advancement links.
const (
	SlotA = 1
	SlotB = 2
)

// MatchSlot is one competitor side of a match. It is a tagged variant:
// either a concrete team (TeamID set) or a placeholder waiting on the
// outcome of an earlier match (SourceMatchNumber set). Stored as JSONB.
type MatchSlot struct {
	TeamID            *int   `json:"team_id,omitempty"`
	TeamName          string `json:"team_name,omitempty"`
	CaptainID         *int   `json:"captain_id,omitempty"`
	SourceMatchNumber *int   `json:"source_match_number,omitempty"`
}

// Resolved reports whether the slot references a concrete team.
func (s MatchSlot) Resolved() bool { return s.TeamID != nil }

// DisplayName is the label shown for the slot: the team name once resolved,
// otherwise the "Winner M{n}" placeholder string.
func (s MatchSlot) DisplayName() string {
	if s.Resolved() {
		return s.TeamName
	}
	if s.SourceMatchNumber != nil {
		return fmt.Sprintf("Winner M%d", *s.SourceMatchNumber)
	}
	return "TBD"
}

// Match is one node of the bracket graph. MatchNumber is sequential and
// unique within the tournament. NextMatchID/NextSlot are the structural
// advancement link written at generation time: the match the winner feeds
// and which slot it lands in. A nil link means this is the final.
//
// Two-leg ties: Leg is 1 or 2 and AggregateID points at the master match
// whose result is synthesized from both legs.
type Match struct {
	ID           int          `json:"id" db:"id"`
	TournamentID int          `json:"tournament_id" db:"tournament_id"`
	Round        int          `json:"round" db:"round"`
	MatchNumber  int          `json:"match_number" db:"match_number"`
	GroupLabel   *string      `json:"group_label,omitempty" db:"group_label"`
	Format       MatchFormat  `json:"format" db:"format"`
	SlotA        MatchSlot    `json:"team_a" db:"slot_a"`
	SlotB        MatchSlot    `json:"team_b" db:"slot_b"`
	ScheduledAt  time.Time    `json:"scheduled_at" db:"scheduled_at"`
	Status       MatchStatus  `json:"status" db:"status"`
	Leg          *int         `json:"leg,omitempty" db:"leg"`
	AggregateID  *int         `json:"aggregate_id,omitempty" db:"aggregate_id"`
	NextMatchID  *int         `json:"next_match_id,omitempty" db:"next_match_id"`
	NextSlot     *int         `json:"next_slot,omitempty" db:"next_slot"`
	Result       *MatchResult `json:"result,omitempty" db:"result"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// Slot returns the slot by its number (SlotA or SlotB).
func (m *Match) Slot(n int) MatchSlot {
	if n == SlotB {
		return m.SlotB
	}
	return m.SlotA
}

// CaptainSide reports which side a captain belongs to: SlotA, SlotB, or 0
// when the user captains neither team.
func (m *Match) CaptainSide(userID int) int {
	if m.SlotA.CaptainID != nil && *m.SlotA.CaptainID == userID {
		return SlotA
	}
	if m.SlotB.CaptainID != nil && *m.SlotB.CaptainID == userID {
		return SlotB
	}
	return 0
}
