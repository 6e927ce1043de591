package models

import "time"

// RegistrationStatus tracks organizer approval of a sign-up.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
)

// Registration links a team (or a solo player via their one-man team) to a
// tournament. GroupLabel is nil until the group allocator has run.
// AllocationVersion is bumped on every full regeneration so a batch of
// assignments can be told apart from the previous one.
type Registration struct {
	ID                int                `json:"id" db:"id"`
	TournamentID      int                `json:"tournament_id" db:"tournament_id"`
	TeamID            int                `json:"team_id" db:"team_id"`
	GroupLabel        *string            `json:"group_label,omitempty" db:"group_label"`
	Status            RegistrationStatus `json:"status" db:"status"`
	Seed              int                `json:"seed" db:"seed"`
	AllocationVersion int                `json:"allocation_version" db:"allocation_version"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}
