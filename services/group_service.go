package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/playvora/arena-engine/brackets"
	"github.com/playvora/arena-engine/models"
	"github.com/playvora/arena-engine/repositories"
)

// GroupAllocation is the result of one allocation run: registrations grouped
// by label, in the order they were assigned.
type GroupAllocation struct {
	Version int                               `json:"version"`
	Groups  map[string][]*models.Registration `json:"groups"`
	Labels  []string                          `json:"labels"`
}

type GroupService interface {
	// AllocateGroups partitions the tournament's approved registrations into
	// labeled groups of roughly groupSize teams and stores the assignments as
	// a new allocation version. Any previous assignment is overwritten.
	AllocateGroups(ctx context.Context, tournamentID, groupSize int) (*GroupAllocation, error)
	// Reassign moves a single registration to the given group without
	// touching the rest of the batch or its version.
	Reassign(ctx context.Context, registrationID int, groupLabel string) (*models.Registration, error)
	// ListGroups returns the current assignment, grouped by label.
	ListGroups(ctx context.Context, tournamentID int) (*GroupAllocation, error)
}

type groupService struct {
	tx               repositories.TxManager
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	hub              Broadcaster
	logger           *slog.Logger
}

func NewGroupService(
	tx repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	hub Broadcaster,
	logger *slog.Logger,
) GroupService {
	if hub == nil {
		hub = NoopBroadcaster()
	}
	return &groupService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		hub:              hub,
		logger:           logger,
	}
}

// groupLabels produces "A".."Z", then "AA", "AB", ... for very large fields.
func groupLabels(n int) []string {
	labels := make([]string, 0, n)
	for i := 0; i < n; i++ {
		label := ""
		for v := i; ; v = v/26 - 1 {
			label = string(rune('A'+v%26)) + label
			if v < 26 {
				break
			}
		}
		labels = append(labels, label)
	}
	return labels
}

func (s *groupService) AllocateGroups(ctx context.Context, tournamentID, groupSize int) (*GroupAllocation, error) {
	if groupSize < 2 {
		return nil, fmt.Errorf("%w: group size must be at least 2", ErrInvalidGroupSize)
	}
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapRepoError(err)
	}

	status := models.RegistrationApproved
	regs, err := s.registrationRepo.ListByTournament(ctx, nil, tournamentID, &status, true)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if len(regs) == 0 {
		return nil, ErrNoRegistrations
	}
	if len(regs) < groupSize {
		return nil, fmt.Errorf("%w: %d registrations for group size %d", ErrNotEnoughTeams, len(regs), groupSize)
	}

	numGroups := (len(regs) + groupSize - 1) / groupSize
	labels := groupLabels(numGroups)

	var allocation *GroupAllocation
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		version, err := s.registrationRepo.MaxAllocationVersion(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		version++

		// Deterministic for a given tournament and version so a rerun of
		// the same batch reproduces the same draw.
		shuffled := make([]*models.Registration, len(regs))
		copy(shuffled, regs)
		rng := rand.New(rand.NewSource(int64(tournamentID)<<16 | int64(version)))
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		groups := make(map[string][]*models.Registration, numGroups)
		for i, reg := range shuffled {
			label := labels[snakeIndex(i, numGroups)]
			reg.GroupLabel = &label
			reg.AllocationVersion = version
			if err := s.registrationRepo.UpdateGroupLabel(ctx, exec, reg.ID, reg.GroupLabel, version); err != nil {
				return err
			}
			groups[label] = append(groups[label], reg)
		}
		allocation = &GroupAllocation{Version: version, Groups: groups, Labels: labels}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("groups allocated",
		"tournament_id", tournamentID,
		"groups", numGroups,
		"registrations", len(regs),
		"version", allocation.Version)

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventGroupsUpdated,
		Payload: allocation,
	})
	return allocation, nil
}

// snakeIndex walks the group labels forward then backward so later picks do
// not pile into the last group.
func snakeIndex(i, numGroups int) int {
	lap := i / numGroups
	pos := i % numGroups
	if lap%2 == 1 {
		return numGroups - 1 - pos
	}
	return pos
}

func (s *groupService) Reassign(ctx context.Context, registrationID int, groupLabel string) (*models.Registration, error) {
	if groupLabel == "" {
		return nil, ErrInvalidGroupLabel
	}
	reg, err := s.registrationRepo.GetByID(ctx, nil, registrationID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if reg.AllocationVersion == 0 {
		return nil, fmt.Errorf("%w: tournament has no group allocation yet", ErrInvalidGroupLabel)
	}

	reg.GroupLabel = &groupLabel
	if err := s.registrationRepo.UpdateGroupLabel(ctx, nil, reg.ID, reg.GroupLabel, reg.AllocationVersion); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("registration reassigned",
		"registration_id", registrationID,
		"tournament_id", reg.TournamentID,
		"group", groupLabel)

	s.hub.BroadcastToRoom(brackets.RoomForTournament(reg.TournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventGroupsUpdated,
		Payload: reg,
	})
	return reg, nil
}

func (s *groupService) ListGroups(ctx context.Context, tournamentID int) (*GroupAllocation, error) {
	status := models.RegistrationApproved
	regs, err := s.registrationRepo.ListByTournament(ctx, nil, tournamentID, &status, true)
	if err != nil {
		return nil, mapRepoError(err)
	}

	groups := make(map[string][]*models.Registration)
	version := 0
	for _, reg := range regs {
		if reg.GroupLabel == nil {
			continue
		}
		groups[*reg.GroupLabel] = append(groups[*reg.GroupLabel], reg)
		if reg.AllocationVersion > version {
			version = reg.AllocationVersion
		}
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	return &GroupAllocation{Version: version, Groups: groups, Labels: labels}, nil
}
