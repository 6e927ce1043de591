package services

import "errors"

// Shared sentinel errors used across services and the HTTP error mapping.
var (
	// Not found
	ErrNotFound             = errors.New("requested resource not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAggregateLegMissing  = errors.New("aggregate sibling leg does not exist")

	// Validation and business rules
	ErrValidationFailed  = errors.New("validation failed")
	ErrProofRequired     = errors.New("a proof reference is required to submit a result")
	ErrReasonRequired    = errors.New("a reason is required for this action")
	ErrInvalidScores     = errors.New("submitted scores are malformed")
	ErrWinnerRequired    = errors.New("an elimination match cannot end in a draw")
	ErrResultMissing     = errors.New("match has no submitted result")
	ErrPlayerNotOnRoster = errors.New("player line references a player outside the team roster")

	// Authorization
	ErrNotMatchCaptain  = errors.New("caller is not a captain of either side of this match")
	ErrSelfConfirmation = errors.New("the submitting captain cannot confirm or dispute their own result")
	ErrAdminRequired    = errors.New("only an administrator can perform this action")

	// State machine
	ErrInvalidMatchState     = errors.New("operation not permitted from the current match status")
	ErrSlotAlreadyResolved   = errors.New("downstream slot already resolved to a different team")
	ErrAggregateMasterLocked = errors.New("aggregate master results are synthesized from its legs")

	// Bracket generation
	ErrBracketLocked            = errors.New("bracket has matches in a non-terminal state")
	ErrRegenerationNotConfirmed = errors.New("bracket regeneration is destructive and must be confirmed")
	ErrNotEnoughTeams           = errors.New("not enough teams to generate a bracket")
	ErrUnsupportedBracketType   = errors.New("unsupported bracket type")

	// Group allocation
	ErrNoRegistrations   = errors.New("tournament has no registrations to allocate")
	ErrInvalidGroupLabel = errors.New("invalid group label")
	ErrInvalidGroupSize  = errors.New("group size must be at least 2")
)
