package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
)

// TeamFormat is the roster size class of a tournament.
type TeamFormat string

const (
	FormatSolo  TeamFormat = "SOLO"
	FormatDuo   TeamFormat = "DUO"
	FormatTrio  TeamFormat = "TRIO"
	FormatSquad TeamFormat = "SQUAD"
)

// BracketType selects how the bracket generator structures matches.
type BracketType string

const (
	BracketElimination   BracketType = "ELIMINATION"
	BracketBattleRoyale  BracketType = "BATTLE_ROYALE"
	BracketGroupKnockout BracketType = "GROUP_KNOCKOUT"
)

// PointsConfig drives the points calculator. Placement keys are finishing
// positions; anything not listed scores zero placement points.
type PointsConfig struct {
	PlacementPoints map[int]int `json:"placement_points,omitempty"`
	PerKillPoints   int         `json:"per_kill_points,omitempty"`
	WinPoints       int         `json:"win_points,omitempty"`
	DrawPoints      int         `json:"draw_points,omitempty"`
}

type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Game            string           `json:"game" db:"game"`
	Format          TeamFormat       `json:"format" db:"format"`
	BracketType     BracketType      `json:"bracket_type" db:"bracket_type"`
	MaxParticipants int              `json:"max_participants" db:"max_participants"`
	PointsConfig    PointsConfig     `json:"points_config" db:"points_config"`
	Status          TournamentStatus `json:"status" db:"status"`
	OrganizerID     int              `json:"organizer_id" db:"organizer_id"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`

	// Optional linked data, populated by services, not mapped directly.
	Registrations []Registration `json:"registrations,omitempty" db:"-"`
	Matches       []Match        `json:"matches,omitempty" db:"-"`
}
