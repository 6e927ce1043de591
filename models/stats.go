package models

import (
	"strconv"
	"time"
)

// TeamStats is the durable running aggregate for one team in one game,
// keyed "{teamID}_{game}". Created lazily on the first approved match and
// only ever incremented afterwards.
type TeamStats struct {
	ID            string      `json:"id" db:"id"`
	TeamID        int         `json:"team_id" db:"team_id"`
	Game          string      `json:"game" db:"game"`
	MatchesPlayed int         `json:"matches_played" db:"matches_played"`
	Wins          int         `json:"wins" db:"wins"`
	Losses        int         `json:"losses" db:"losses"`
	Draws         int         `json:"draws" db:"draws"`
	TotalPoints   int         `json:"total_points" db:"total_points"`
	TotalKills    int         `json:"total_kills" db:"total_kills"`
	WinRate       float64     `json:"win_rate" db:"win_rate"`
	AvgKills      float64     `json:"avg_kills" db:"avg_kills"`
	Placements    map[int]int `json:"placements,omitempty" db:"placements"` // tournamentID -> final placement
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// PlayerStats is the per-player counterpart of TeamStats, keyed
// "{playerID}_{game}".
type PlayerStats struct {
	ID            string    `json:"id" db:"id"`
	PlayerID      int       `json:"player_id" db:"player_id"`
	Game          string    `json:"game" db:"game"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	Wins          int       `json:"wins" db:"wins"`
	Losses        int       `json:"losses" db:"losses"`
	Draws         int       `json:"draws" db:"draws"`
	TotalPoints   float64   `json:"total_points" db:"total_points"`
	Kills         int       `json:"kills" db:"kills"`
	Deaths        int       `json:"deaths" db:"deaths"`
	Assists       int       `json:"assists" db:"assists"`
	Damage        int       `json:"damage" db:"damage"`
	Headshots     int       `json:"headshots" db:"headshots"`
	MVPCount      int       `json:"mvp_count" db:"mvp_count"`
	KDRatio       float64   `json:"kd_ratio" db:"kd_ratio"`
	AvgKills      float64   `json:"avg_kills" db:"avg_kills"`
	WinRate       float64   `json:"win_rate" db:"win_rate"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// StatsKey builds the composite key used by the stats collections.
func StatsKey(entityID int, game string) string {
	return strconv.Itoa(entityID) + "_" + game
}
