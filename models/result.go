package models

import "time"

// ResultWinner identifies the winning side of a match result.
type ResultWinner string

const (
	WinnerTeamA ResultWinner = "team_a"
	WinnerTeamB ResultWinner = "team_b"
	WinnerDraw  ResultWinner = "draw"
)

// PlayerMatchStats is one player's line in a single match.
type PlayerMatchStats struct {
	PlayerID  int     `json:"player_id"`
	Nickname  string  `json:"nickname,omitempty"`
	Kills     int     `json:"kills"`
	Deaths    int     `json:"deaths"`
	Assists   int     `json:"assists"`
	Damage    int     `json:"damage"`
	Headshots int     `json:"headshots"`
	MVP       bool    `json:"mvp,omitempty"`
	Points    float64 `json:"points"`
}

// TeamResultStats is the per-team block of a match result. Placement is the
// finishing position (1 for the winner of a head-to-head match).
type TeamResultStats struct {
	TeamID          int                `json:"team_id"`
	TeamName        string             `json:"team_name,omitempty"`
	Placement       int                `json:"placement"`
	Kills           int                `json:"kills"`
	PlacementPoints int                `json:"placement_points"`
	KillPoints      int                `json:"kill_points"`
	TotalPoints     int                `json:"total_points"`
	Players         []PlayerMatchStats `json:"players,omitempty"`
}

type DisputeInfo struct {
	Reason     string    `json:"reason"`
	DisputedBy int       `json:"disputed_by"`
	DisputedAt time.Time `json:"disputed_at"`
}

type ApprovalInfo struct {
	ApprovedBy int       `json:"approved_by"`
	Notes      string    `json:"notes,omitempty"`
	ApprovedAt time.Time `json:"approved_at"`
}

// ResultEdit is one entry of the append-only edit history kept on a result.
type ResultEdit struct {
	EditedBy int       `json:"edited_by"`
	EditedAt time.Time `json:"edited_at"`
	Note     string    `json:"note,omitempty"`
}

// MatchResult is the single result document of a match. It is created by
// Submit and only ever mutated in place by later transitions; a second
// result is never created for the same match. Stored as a JSONB column on
// the match row.
type MatchResult struct {
	Winner          ResultWinner      `json:"winner"`
	SubmittedBy     int               `json:"submitted_by"`
	SubmittedAt     time.Time         `json:"submitted_at"`
	ProofURL        string            `json:"proof_url"`
	TeamA           TeamResultStats   `json:"team_a_stats"`
	TeamB           TeamResultStats   `json:"team_b_stats"`
	Lobby           []TeamResultStats `json:"lobby,omitempty"` // battle royale: all competitors
	ConfirmedBy     *int              `json:"confirmed_by,omitempty"`
	ConfirmedAt     *time.Time        `json:"confirmed_at,omitempty"`
	Dispute         *DisputeInfo      `json:"dispute,omitempty"`
	Approval        *ApprovalInfo     `json:"approval,omitempty"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	EditHistory     []ResultEdit      `json:"edit_history,omitempty"`
}

// SideStats returns the stats block for a slot number.
func (r *MatchResult) SideStats(slot int) *TeamResultStats {
	if slot == SlotB {
		return &r.TeamB
	}
	return &r.TeamA
}

// WinnerSlot maps the winner field to a slot number, 0 on a draw.
func (r *MatchResult) WinnerSlot() int {
	switch r.Winner {
	case WinnerTeamA:
		return SlotA
	case WinnerTeamB:
		return SlotB
	}
	return 0
}
