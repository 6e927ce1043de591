package services

import (
	"errors"

	"github.com/playvora/arena-engine/models"
	"github.com/playvora/arena-engine/repositories"
)

// Broadcaster pushes live updates to tournament rooms. brackets.Hub is the
// production implementation; services only need this slice of it.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// noopBroadcaster keeps services usable without a hub (tests, batch tools).
type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToRoom(string, interface{}) {}

// NoopBroadcaster returns a Broadcaster that drops every message.
func NoopBroadcaster() Broadcaster { return noopBroadcaster{} }

// mapRepoError translates repository sentinels to their service-level
// counterparts so handlers only ever match on the services taxonomy.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrRegistrationNotFound
	case errors.Is(err, repositories.ErrMatchStateConflict):
		return ErrInvalidMatchState
	}
	return err
}

// concreteSlot builds a resolved match slot from a winning team reference.
func concreteSlot(teamID int, name string, captainID int) models.MatchSlot {
	id := teamID
	capID := captainID
	return models.MatchSlot{
		TeamID:    &id,
		TeamName:  name,
		CaptainID: &capID,
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
