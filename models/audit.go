package models

import "time"

// Audit actions recorded for match lifecycle transitions.
const (
	AuditActionSubmit    = "result_submitted"
	AuditActionConfirm   = "result_confirmed"
	AuditActionDispute   = "result_disputed"
	AuditActionApprove   = "result_approved"
	AuditActionReject    = "result_rejected"
	AuditActionAggregate = "aggregate_resolved"
	AuditActionAdvance   = "winner_advanced"
	AuditActionEdit      = "result_edited"
)

// AuditLogEntry is an immutable record of one state transition. Entries are
// append-only: never updated, never deleted.
type AuditLogEntry struct {
	ID           int         `json:"id" db:"id"`
	MatchID      int         `json:"match_id" db:"match_id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Action       string      `json:"action" db:"action"`
	ActorID      int         `json:"actor_id" db:"actor_id"`
	ActorName    string      `json:"actor_name,omitempty" db:"actor_name"`
	PrevStatus   MatchStatus `json:"prev_status" db:"prev_status"`
	NewStatus    MatchStatus `json:"new_status" db:"new_status"`
	Note         string      `json:"note,omitempty" db:"note"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}
