// Package points computes match scores from tournament configuration.
// It is pure: no storage, no clocks, no side effects.
package points

import "github.com/playvora/arena-engine/models"

// Outcome is a team's head-to-head result used by the win/draw/loss scheme.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Breakdown is the computed score split for one team in one match.
type Breakdown struct {
	PlacementPoints int `json:"placement_points"`
	KillPoints      int `json:"kill_points"`
	TotalPoints     int `json:"total_points"`
}

// ComputeTeamPoints scores one team's performance.
//
// Battle royale matches use the placement map plus kills times the per-kill
// weight. Head-to-head matches reduce to a win/draw/loss scheme: the winner
// takes WinPoints, a draw splits DrawPoints to both sides, a loss scores
// zero. Kills still earn kill points in head-to-head when a per-kill weight
// is configured.
func ComputeTeamPoints(cfg models.PointsConfig, format models.MatchFormat, placement, kills int, outcome Outcome) Breakdown {
	var b Breakdown

	switch format {
	case models.FormatBattleRoyale:
		b.PlacementPoints = cfg.PlacementPoints[placement]
		b.KillPoints = kills * cfg.PerKillPoints
	default:
		switch outcome {
		case OutcomeWin:
			b.PlacementPoints = cfg.WinPoints
		case OutcomeDraw:
			b.PlacementPoints = cfg.DrawPoints
		}
		b.KillPoints = kills * cfg.PerKillPoints
	}

	b.TotalPoints = b.PlacementPoints + b.KillPoints
	return b
}

// OutcomeForSlot derives a head-to-head outcome from the winner field for
// the given slot number.
func OutcomeForSlot(winner models.ResultWinner, slot int) Outcome {
	switch winner {
	case models.WinnerDraw:
		return OutcomeDraw
	case models.WinnerTeamA:
		if slot == models.SlotA {
			return OutcomeWin
		}
		return OutcomeLoss
	case models.WinnerTeamB:
		if slot == models.SlotB {
			return OutcomeWin
		}
		return OutcomeLoss
	}
	return OutcomeLoss
}
